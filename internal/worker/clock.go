package worker

import "time"

// nowUTC is swapped out in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
