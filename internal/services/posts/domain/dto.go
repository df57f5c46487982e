package domain

// MaxAudioBytes bounds an uploaded audio comment
const MaxAudioBytes = 5 << 20

// CreatePostInput creates a post; Title becomes the caption comment
type CreatePostInput struct {
	Author    string    `json:"author" validate:"required,notblank,max=64"`
	Title     string    `json:"title" validate:"required,notblank,max=280"`
	MediaType MediaType `json:"media_type" validate:"required,oneof=image audio video"`
	MediaURL  string    `json:"media_url" validate:"omitempty,url"`
	Ratio     float64   `json:"ratio" validate:"gte=0"`
}

// AddCommentInput adds a text comment
type AddCommentInput struct {
	Author string `json:"author" validate:"required,notblank,max=64"`
	Text   string `json:"text" validate:"required,notblank,max=2000"`
}

// AddAudioCommentInput adds an audio comment; Audio is base64 in JSON
type AddAudioCommentInput struct {
	Author      string `json:"author" validate:"required,notblank,max=64"`
	ContentType string `json:"content_type" validate:"required,audio_mime"`
	Audio       []byte `json:"audio" validate:"required,min=1,max=5242880"`
}

// ListQuery pages the post list newest first
type ListQuery struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}
