package types

// Result is the outcome of a mutation: a success flag and a human message.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Succeeded(msg string) Result { return Result{OK: true, Message: msg} }
func Failed(msg string) Result    { return Result{OK: false, Message: msg} }

// LookupResult is the outcome of a point read. Data is nil when OK is false.
type LookupResult[T any] struct {
	OK      bool   `json:"ok"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// PageResult is the outcome of a paginated read.
type PageResult[T any] struct {
	OK         bool   `json:"ok"`
	Data       []T    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	Total      int    `json:"total"`
	NextCursor *int   `json:"next_cursor"`
}

// CountResult is the outcome of a bulk delete.
type CountResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Affected int64  `json:"affected"`
}
