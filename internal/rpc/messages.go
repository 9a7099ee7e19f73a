package rpc

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterUserRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterUserResponse struct {
	UserID string `json:"user_id"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	VerifierCandidate []byte `json:"verifier_candidate"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GetUploadURLRequest asks for a presigned URL to upload one image.
type GetUploadURLRequest struct {
	ContentType string `json:"content_type"`
}

type GetUploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Place struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Post is the server-facing view of a scheduled post.
type Post struct {
	LocalID     string    `json:"local_id"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Place       *Place    `json:"place,omitempty"`
	Visibility  string    `json:"visibility,omitempty"`
}

// SubmitPostRequest hands a scheduled post to the server. MediaKeys are the
// storage keys of images uploaded beforehand.
type SubmitPostRequest struct {
	Post      Post     `json:"post"`
	MediaKeys []string `json:"media_keys,omitempty"`
}

// SubmitPostResponse carries the state the server put the post in:
// "pending" when accepted, "failed" with a reason when rejected.
type SubmitPostResponse struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

type PostRef struct {
	LocalID  string `json:"local_id"`
	RemoteID string `json:"remote_id,omitempty"`
}

type FetchStatusRequest struct {
	Refs []PostRef `json:"refs"`
}

type PostStatus struct {
	Ref            PostRef  `json:"ref"`
	State          string   `json:"state"`
	RemoteID       string   `json:"remote_id,omitempty"`
	CloudImageURLs []string `json:"cloud_image_urls,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

type FetchStatusResponse struct {
	Statuses []PostStatus `json:"statuses"`
}
