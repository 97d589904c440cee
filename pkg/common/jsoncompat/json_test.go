package jsoncompat

import (
	"testing"
	"time"
)

type event struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func TestRoundTripKeepsTags(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := Marshal(event{UserID: "u1", Timestamp: at})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	expected := `{"userId":"u1","timestamp":"2024-01-02T03:04:05Z"}`
	if string(data) != expected {
		t.Errorf("Expected %s, got %s", expected, data)
	}
	var back event
	if err := Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.UserID != "u1" || !back.Timestamp.Equal(at) {
		t.Errorf("Unexpected result %+v", back)
	}
}
