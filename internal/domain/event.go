package domain

// EventKind discriminates job events on the push channel.
type EventKind string

const (
	EventVideoCompleted EventKind = "video_completed"
	EventVideoFailed    EventKind = "video_failed"
	// EventVideoStalled is only produced locally when an observation bound is configured.
	EventVideoStalled EventKind = "video_stalled"
)

// JobEvent is the single terminal notification delivered for a job.
//
// Completed events carry VideoURL, NewBalance and PointsDeducted. Failed
// events carry Message and, when known, NewBalance. Stalled events carry
// Attempts.
type JobEvent struct {
	Kind           EventKind
	JobID          string
	VideoID        string
	VideoURL       string
	Message        string
	NewBalance     *int64
	PointsDeducted int64
	Attempts       int
}

// Completed reports whether the event signals a finished video.
func (e JobEvent) Completed() bool { return e.Kind == EventVideoCompleted }

// Failed reports whether the event signals a failed job.
func (e JobEvent) Failed() bool { return e.Kind == EventVideoFailed }

// CompletedEvent builds a completion event.
func CompletedEvent(jobID, videoID, videoURL string, newBalance, deducted int64) JobEvent {
	return JobEvent{
		Kind:           EventVideoCompleted,
		JobID:          jobID,
		VideoID:        videoID,
		VideoURL:       videoURL,
		NewBalance:     &newBalance,
		PointsDeducted: deducted,
	}
}

// FailedEvent builds a failure event. newBalance may be nil.
func FailedEvent(jobID, videoID, message string, newBalance *int64) JobEvent {
	return JobEvent{
		Kind:       EventVideoFailed,
		JobID:      jobID,
		VideoID:    videoID,
		Message:    message,
		NewBalance: newBalance,
	}
}

// JobMessage is the push-channel wire form of a job event.
type JobMessage struct {
	Type           EventKind `json:"type"`
	JobID          string    `json:"job_id,omitempty"`
	UserID         int64     `json:"user_id,omitempty"`
	VideoID        string    `json:"video_id,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	Message        string    `json:"message,omitempty"`
	NewBalance     *int64    `json:"new_balance,omitempty"`
	PointsDeducted int64     `json:"points_deducted,omitempty"`
}

// Event converts a terminal message into a JobEvent. Non-terminal kinds return false.
func (m JobMessage) Event() (JobEvent, bool) {
	switch m.Type {
	case EventVideoCompleted:
		ev := JobEvent{
			Kind:           EventVideoCompleted,
			JobID:          m.JobID,
			VideoID:        m.VideoID,
			VideoURL:       m.VideoURL,
			NewBalance:     m.NewBalance,
			PointsDeducted: m.PointsDeducted,
		}
		return ev, true
	case EventVideoFailed:
		return FailedEvent(m.JobID, m.VideoID, m.Message, m.NewBalance), true
	default:
		return JobEvent{}, false
	}
}

// MessageFromSettlement builds the push message announcing a settled job.
func MessageFromSettlement(s Settlement) JobMessage {
	balance := s.NewBalance
	msg := JobMessage{
		JobID:      s.JobID,
		UserID:     s.OwnerUserID,
		VideoID:    s.JobID,
		NewBalance: &balance,
	}
	if s.Status == JobStatusCompleted {
		msg.Type = EventVideoCompleted
		msg.VideoURL = s.VideoURL
		msg.PointsDeducted = s.PointsDeducted
	} else {
		msg.Type = EventVideoFailed
		msg.Message = s.Message
	}
	return msg
}

// StatusReport is the pull-channel wire form of a job's status.
type StatusReport struct {
	Status         JobStatus `json:"status"`
	VideoID        string    `json:"video_id,omitempty"`
	VideoURL       string    `json:"video_url,omitempty"`
	Message        string    `json:"message,omitempty"`
	NewBalance     *int64    `json:"new_balance,omitempty"`
	PointsDeducted int64     `json:"points_deducted,omitempty"`
}

// Event converts a terminal report into a JobEvent for jobID.
func (r StatusReport) Event(jobID string) (JobEvent, bool) {
	switch r.Status {
	case JobStatusCompleted:
		return JobEvent{
			Kind:           EventVideoCompleted,
			JobID:          jobID,
			VideoID:        r.VideoID,
			VideoURL:       r.VideoURL,
			NewBalance:     r.NewBalance,
			PointsDeducted: r.PointsDeducted,
		}, true
	case JobStatusFailed:
		return FailedEvent(jobID, r.VideoID, r.Message, r.NewBalance), true
	default:
		return JobEvent{}, false
	}
}

// ReportForJob builds the status report for a stored job. balance is the
// owner's current balance and is only attached to terminal reports.
func ReportForJob(job GenerationJob, balance int64) StatusReport {
	switch job.Status {
	case JobStatusCompleted:
		return StatusReport{
			Status:         JobStatusCompleted,
			VideoID:        job.ID,
			VideoURL:       job.VideoURL,
			NewBalance:     &balance,
			PointsDeducted: job.PointsDeducted,
		}
	case JobStatusFailed:
		return StatusReport{
			Status:     JobStatusFailed,
			VideoID:    job.ID,
			Message:    job.ErrorMessage,
			NewBalance: &balance,
		}
	default:
		return StatusReport{Status: JobStatusPending}
	}
}
