package types

// Schema holds the collection and field names used in the document store.
// The defaults match the data written by the mobile client.
type Schema struct {
	Users           string `env:"USERS" envDefault:"users"`
	UserID          string `env:"USER_ID" envDefault:"user_id"`
	DisplayName     string `env:"DISPLAY_NAME" envDefault:"display_name"`
	Phone           string `env:"PHONE" envDefault:"phone"`
	PhotoURL        string `env:"PHOTO_URL" envDefault:"photo_url"`
	Location        string `env:"LOCATION" envDefault:"location"`
	DeviceTokens    string `env:"DEVICE_TOKENS" envDefault:"device_tokens"`
	Records         string `env:"RECORDS" envDefault:"ordenadores"`
	RecordLabel     string `env:"RECORD_LABEL" envDefault:"ordenador"`
	RecordTimestamp string `env:"RECORD_TIMESTAMP" envDefault:"hora de inicio"`
}

func DefaultSchema() Schema {
	return Schema{
		Users:           "users",
		UserID:          "user_id",
		DisplayName:     "display_name",
		Phone:           "phone",
		PhotoURL:        "photo_url",
		Location:        "location",
		DeviceTokens:    "device_tokens",
		Records:         "ordenadores",
		RecordLabel:     "ordenador",
		RecordTimestamp: "hora de inicio",
	}
}

// SortField returns the record field a sort key orders by, or "" for store order.
func (s Schema) SortField(key SortKey) string {
	switch key {
	case SortTime:
		return s.RecordTimestamp
	case SortLabel:
		return s.RecordLabel
	default:
		return ""
	}
}
