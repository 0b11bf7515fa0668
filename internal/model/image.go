package model

import "time"

// Image records one successful generation.  The binary lives on disk
// under the upload directory; ImageURL is the public path the frontend
// uses to fetch it.  Prompt stores the final prompt that was sent
// upstream, which is what search matches against.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the image.
//  OwnerName – user display name (joined in by some queries).
//  ImageURL  – public URL path of the stored file.
//  Prompt    – final prompt used for the generation.
//  FileSize  – stored file size in bytes.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Image struct {
    ID        uint64    // images.id
    UserID    uint64    // images.user_id
    OwnerName string    // users.name (joined, not an images column)
    ImageURL  string    // images.image_url
    Prompt    string    // images.prompt
    FileSize  int64     // images.file_size
    CreatedAt time.Time // images.created_at
    UpdatedAt time.Time // images.updated_at
}
