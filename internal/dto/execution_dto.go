package dto

// ExecuteRequest runs raw code without a harness.
type ExecuteRequest struct {
	Code     string `json:"code" validate:"required,max=65536"`
	Language string `json:"language" validate:"required"`
}

// ExecuteResponse carries the captured program output.
type ExecuteResponse struct {
	Output   string  `json:"output"`
	Error    *string `json:"error"`
	ExitCode int     `json:"exit_code"`
	TimedOut bool    `json:"timed_out"`
}
