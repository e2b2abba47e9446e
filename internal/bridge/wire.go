package bridge

// Request is sent to the execution context.
type Request struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// Response is sent back by the execution context. ID echoes the request.
type Response struct {
	ID     string `json:"id"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Output is what a caller of Submit receives.
type Output struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Failed reports whether the run produced error text.
func (o Output) Failed() bool {
	return o.Stderr != ""
}
