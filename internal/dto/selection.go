package dto

// SelectClassRequest adds a class offering to the caller's selection list.
type SelectClassRequest struct {
	ClassID string `json:"classId" validate:"required"`
}

// DeleteResult acknowledges a delete.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}
