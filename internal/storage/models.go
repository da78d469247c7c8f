package storage

import "time"

// Doubt statuses
const (
	StatusProcessing = "processing"
	StatusAnswered   = "answered"
	StatusFailed     = "failed"
)

// Question types
const (
	QuestionText  = "text"
	QuestionImage = "image"
)

// Chat sender types
const (
	SenderUser  = "user"
	SenderTutor = "tutor"
)

// User is a registered student
type User struct {
	ID           string    `bson:"id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// DoubtAnswer is the tutor's stored solution
type DoubtAnswer struct {
	Solution    string    `bson:"solution" json:"solution"`
	Steps       []string  `bson:"steps" json:"steps"`
	GeneratedAt time.Time `bson:"generated_at" json:"generated_at"`
}

// OCRData is the text extracted from an image doubt
type OCRData struct {
	ExtractedText     string  `bson:"extracted_text" json:"extracted_text"`
	ConfidenceScores  []int   `bson:"confidence_scores" json:"confidence_scores"`
	PreprocessingUsed string  `bson:"preprocessing_used" json:"preprocessing_used"`
	AverageConfidence float64 `bson:"average_confidence" json:"average_confidence"`
}

// Doubt is a question submitted by a user
type Doubt struct {
	ID           string       `bson:"id" json:"id"`
	UserID       string       `bson:"user_id" json:"-"`
	Question     string       `bson:"question" json:"question"`
	Subject      string       `bson:"subject" json:"subject"`
	QuestionType string       `bson:"question_type" json:"question_type"`
	ImageData    *string      `bson:"image_data" json:"image_data"` // base64
	OCRData      *OCRData     `bson:"ocr_data,omitempty" json:"ocr_data,omitempty"`
	Answer       *DoubtAnswer `bson:"answer" json:"answer"`
	Status       string       `bson:"status" json:"status"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at" json:"updated_at"`
}

// ChatMessage is one message in a user's chat with tutors
type ChatMessage struct {
	ID         string    `bson:"id" json:"id"`
	UserID     string    `bson:"user_id" json:"-"`
	DoubtID    *string   `bson:"doubt_id" json:"doubt_id"`
	Message    string    `bson:"message" json:"message"`
	SenderType string    `bson:"sender_type" json:"sender_type"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// StatusCheck records a client ping
type StatusCheck struct {
	ID         string    `bson:"id" json:"id"`
	ClientName string    `bson:"client_name" json:"client_name"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

func (d *Doubt) clone() *Doubt {
	c := *d
	if d.ImageData != nil {
		img := *d.ImageData
		c.ImageData = &img
	}
	if d.OCRData != nil {
		o := *d.OCRData
		o.ConfidenceScores = append([]int(nil), d.OCRData.ConfidenceScores...)
		c.OCRData = &o
	}
	if d.Answer != nil {
		a := *d.Answer
		a.Steps = append([]string(nil), d.Answer.Steps...)
		c.Answer = &a
	}
	return &c
}
