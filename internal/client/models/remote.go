package models

// PostRef identifies a post towards the server: always by local id, plus
// the remote id once known.
type PostRef struct {
	LocalID  string
	RemoteID string
}

// Ref builds the reference for p.
func (p Post) Ref() PostRef {
	return PostRef{LocalID: p.LocalID, RemoteID: p.RemoteID}
}

// RemoteState is what the server reports for a post.
type RemoteState int

const (
	// RemoteUnknown means the server has no record of the post.
	RemoteUnknown RemoteState = iota
	// RemotePending means the server accepted the post and will publish it later.
	RemotePending
	RemotePublished
	// RemoteFailed means the server rejected the post; Reason says why.
	RemoteFailed
)

func (s RemoteState) String() string {
	switch s {
	case RemotePending:
		return "pending"
	case RemotePublished:
		return "published"
	case RemoteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseRemoteState maps the wire form back to a RemoteState. Unrecognised
// values are treated as unknown.
func ParseRemoteState(s string) RemoteState {
	switch s {
	case "pending":
		return RemotePending
	case "published":
		return RemotePublished
	case "failed":
		return RemoteFailed
	default:
		return RemoteUnknown
	}
}

// RemoteStatus is one record of a status fetch.
type RemoteStatus struct {
	Ref            PostRef
	State          RemoteState
	RemoteID       string
	CloudImageURLs []string
	Reason         string
}

// Submission is what the client sends when handing a scheduled post over.
type Submission struct {
	Post      Post
	MediaKeys []string
}
