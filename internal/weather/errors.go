package weather

import "errors"

var (
	// ErrNoRecord is returned when the store holds no weather record.
	ErrNoRecord = errors.New("weather: no record")

	// ErrDecode is returned when the latest record cannot be interpreted.
	ErrDecode = errors.New("weather: cannot decode record")

	// ErrUnreachable is returned when the store cannot be contacted.
	ErrUnreachable = errors.New("weather: store unreachable")

	// ErrUnknownStore is returned for an unsupported store name.
	ErrUnknownStore = errors.New("weather: unknown store")
)
