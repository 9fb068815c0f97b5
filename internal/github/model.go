package github

import "time"

type seatsResponse struct {
	TotalSeats int        `json:"total_seats"`
	Seats      []seatItem `json:"seats"`
}

type seatItem struct {
	CreatedAt               time.Time  `json:"created_at"`
	LastActivityAt          *time.Time `json:"last_activity_at"`
	PendingCancellationDate *string    `json:"pending_cancellation_date"`
	Assignee                assignee   `json:"assignee"`
	AssigningTeam           *team      `json:"assigning_team"`
}

type assignee struct {
	Login string `json:"login"`
}

type team struct {
	Slug string `json:"slug"`
}
