package safety

import "errors"

// ErrWeatherStoreUnreachable is returned by Evaluate when the weather
// store could not be contacted. The verdict is still computed, cached
// and enforced, with GoodWeather false.
var ErrWeatherStoreUnreachable = errors.New("safety: weather store unreachable")
