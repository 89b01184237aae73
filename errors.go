package gridview

import "errors"

var (
	ErrClosed        = errors.New("grid is closed")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoPostTarget  = errors.New("grid has no post button url")
	ErrNoSource      = errors.New("no row source configured")
)
