package messaging

type ChangeTopic string

const (
	LoginEventTopic ChangeTopic = "login_event"
)

type RabbitConfig struct {
	Url    string `env:"RABBIT_URL"`
	Prefix string `env:"TOPIC_PREFIX" envDefault:"securityapp"`
}

func (c RabbitConfig) Enabled() bool {
	return c.Url != ""
}
