package sd

import "errors"

// ErrServiceDiscovery is the sentinel ServiceDiscoveryError wraps.
var ErrServiceDiscovery = errors.New("sd: service discovery error")

// ServiceDiscoveryError reports a structural problem decoding an SD
// message: an out-of-bounds option reference, an unknown entry or option
// type, or a length mismatch between the declared and actual entries/options
// size. Reserved flag bits are ignored by DecodeFlags, not reported.
type ServiceDiscoveryError struct {
	Reason string
}

func (e ServiceDiscoveryError) Error() string {
	return "sd: service discovery error: " + e.Reason
}

func (e ServiceDiscoveryError) Is(target error) bool {
	return target == ErrServiceDiscovery
}
