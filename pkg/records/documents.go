package records

import (
	"time"

	"github.com/matst80/securityapp/pkg/types"
)

func (a *Aggregator) recordFromDocument(doc types.Document) types.Record {
	return types.Record{
		Label:     doc.String(a.schema.RecordLabel),
		Timestamp: timeValue(doc.Fields[a.schema.RecordTimestamp]),
	}
}

func (a *Aggregator) accountFromDocument(doc types.Document) types.Account {
	return types.Account{
		ID:           doc.String(a.schema.UserID),
		DisplayName:  doc.String(a.schema.DisplayName),
		Phone:        doc.String(a.schema.Phone),
		PhotoURL:     doc.String(a.schema.PhotoURL),
		Location:     locationValue(doc.Fields[a.schema.Location]),
		DeviceTokens: doc.Strings(a.schema.DeviceTokens),
	}
}

// timeValue accepts the native time of a store or its json form.
func timeValue(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func locationValue(v any) *types.Location {
	switch l := v.(type) {
	case types.Location:
		return &l
	case *types.Location:
		return l
	case map[string]any:
		lat, latOk := l["lat"].(float64)
		lng, lngOk := l["lng"].(float64)
		if latOk && lngOk {
			return &types.Location{Latitude: lat, Longitude: lng}
		}
	}
	return nil
}
