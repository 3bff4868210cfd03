package transfer

type PostSubmission struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Network       string `json:"network"`
	ScheduledTime string `json:"scheduled_time"`
}

type ScheduleUpdate struct {
	ID            string `json:"id"`
	ScheduledTime string `json:"scheduled_time"`
}

type PublishCallback struct {
	PostID       string `json:"post_id"`
	Status       string `json:"status"`
	PublishedURL string `json:"published_url"`
}
