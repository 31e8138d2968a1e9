package types

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest is a limit/offset window over a listing.
type PageRequest struct {
	Limit  int
	Offset int
}

// Normalize clamps the window to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// NextCursor returns the offset of the following page, or nil when the
// current page reaches the end.
func NextCursor(offset, limit, total int) *int {
	next := offset + limit
	if limit <= 0 || next >= total {
		return nil
	}
	return &next
}
