package model

import "time"

// StorageEvent is the canonical, closed form of a storage trigger event. The
// entry adapter produces it; nothing past that boundary sees the raw payload.
type StorageEvent struct {
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"object_path"`
}

// ObjectRef is a StorageEvent resolved against the path contract: the user and
// job identifiers extracted from the object path.
type ObjectRef struct {
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"object_path"`
	UserID     string `json:"user_id"`
	JobID      string `json:"job_id"`
}

// StoredObject describes one object in the video bucket as seen by a listing.
type StoredObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
