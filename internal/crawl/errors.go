package crawl

import "errors"

var (
	ErrTemplateExists  = errors.New("template already registered")
	ErrUnknownTemplate = errors.New("unknown template")
	ErrAlreadyStarted  = errors.New("scheduler already started")
	ErrEmptySnapshot   = errors.New("empty snapshot")
)
