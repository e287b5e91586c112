package impl

import "errors"

var (
	ErrInvalidInput  = errors.New("missing or malformed input")
	ErrMailDispatch  = errors.New("mail dispatch failed")
	ErrEmptySecret   = errors.New("empty secret")
	ErrUnknownFactor = errors.New("unknown second factor type")
)
