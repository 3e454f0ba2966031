package model

import "io"

// AvatarUpload is an avatar image received from a client.
type AvatarUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Avatar is a stored avatar image ready to be streamed back.
type Avatar struct {
	Content     io.ReadCloser
	ContentType string
}
