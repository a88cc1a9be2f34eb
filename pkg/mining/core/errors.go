package core

import "fmt"

// Error codes for the mining packages
const (
	ErrCodePluginNotFound   = 1
	ErrCodeSymbolResolution = 2
	ErrCodePluginNotLoaded  = 3
	ErrCodeParameter        = 4
	ErrCodeUnexpectedResult = 5
	ErrCodeProcessing       = 6
	ErrCodeBufferTooSmall   = 7
)

// MinerError is a structured error type shared by the plugin and miner packages
type MinerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *MinerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("mining: [%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("mining: [%d] %s", e.Code, e.Message)
}

// Is matches errors by code, so wrapped or detailed errors still compare
// equal to the predefined vars below via errors.Is.
func (e *MinerError) Is(target error) bool {
	t, ok := target.(*MinerError)
	return ok && t.Code == e.Code
}

func NewError(code int, message string, details ...string) error {
	err := &MinerError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Predefined errors
var (
	ErrPluginNotFound   = NewError(ErrCodePluginNotFound, "plugin library could not be opened")
	ErrSymbolResolution = NewError(ErrCodeSymbolResolution, "plugin symbol resolution failed")
	ErrPluginNotLoaded  = NewError(ErrCodePluginNotLoaded, "no miner plugin is loaded")
	ErrParameter        = NewError(ErrCodeParameter, "plugin rejected parameter")
	ErrUnexpectedResult = NewError(ErrCodeUnexpectedResult, "plugin returned a code outside its contract")
	ErrProcessing       = NewError(ErrCodeProcessing, "plugin processing control failed")
	ErrBufferTooSmall   = NewError(ErrCodeBufferTooSmall, "buffer too small for plugin response")
)

// NewPluginNotFound reports a failed library open, keeping the path and the
// underlying loader error.
func NewPluginNotFound(path string, cause error) error {
	return NewError(ErrCodePluginNotFound, "plugin library could not be opened",
		fmt.Sprintf("%s - %v", path, cause))
}

// NewSymbolResolution reports a missing or malformed plugin entry point.
func NewSymbolResolution(symbol string, cause error) error {
	return NewError(ErrCodeSymbolResolution, "plugin symbol resolution failed",
		fmt.Sprintf("%s - %v", symbol, cause))
}

// NewParameterError reports a rejected get/set with the plugin-reported reason.
func NewParameterError(reason string) error {
	return NewError(ErrCodeParameter, "plugin rejected parameter", reason)
}

// NewUnexpectedResult reports a return code outside the documented contract
// for the named operation.
func NewUnexpectedResult(op string, code uint32) error {
	return NewError(ErrCodeUnexpectedResult, "plugin returned a code outside its contract",
		fmt.Sprintf("%s returned %d", op, code))
}

// NewProcessingError reports a start/stop processing failure.
func NewProcessingError(details string) error {
	return NewError(ErrCodeProcessing, "plugin processing control failed", details)
}
