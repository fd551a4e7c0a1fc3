package domain

import "time"

type LabourUpdateType string

const (
	LabourUpdateTypeAnnouncement LabourUpdateType = "announcement"
	LabourUpdateTypeStatusUpdate LabourUpdateType = "status-update"
	LabourUpdateTypePrivateNote  LabourUpdateType = "private-note"
)

func (t LabourUpdateType) IsValid() bool {
	switch t {
	case LabourUpdateTypeAnnouncement, LabourUpdateTypeStatusUpdate, LabourUpdateTypePrivateNote:
		return true
	default:
		return false
	}
}

func (t LabourUpdateType) String() string {
	return string(t)
}

type LabourUpdate struct {
	ID                   string
	LabourID             string
	Type                 LabourUpdateType
	Message              string
	SentTime             time.Time
	Edited               bool
	ApplicationGenerated bool
}
