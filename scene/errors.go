package scene

import "fmt"

// InvalidEncodingError is raised when a string sub-block's is_ascii
// flag is false, or its bytes fail to decode as valid UTF-8 (spec §6
// error taxonomy, §9 String encoding).
type InvalidEncodingError struct {
	Reason string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid encoding: %s", e.Reason)
}
