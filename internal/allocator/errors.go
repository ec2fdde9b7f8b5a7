package allocator

var (
	ErrNoFit         = &AllocError{"no free block large enough for allocation"}
	ErrInvalidFree   = &AllocError{"address is not the start of an allocated block"}
	ErrInvalidConfig = &AllocError{"invalid allocator configuration"}
)

type AllocError struct {
	Msg string
}

func (e *AllocError) Error() string {
	return e.Msg
}

func (e *AllocError) Is(target error) bool {
	if targetErr, ok := target.(*AllocError); ok {
		return e.Msg == targetErr.Msg
	}
	return false
}
