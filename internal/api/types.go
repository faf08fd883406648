package api

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Item is a list entry: a note or a consultation, depending on the resource.
type Item struct {
	ID                 int    `json:"id"`
	Title              string `json:"title"`
	Status             string `json:"status"`
	ImplementationTime string `json:"implementation_time,omitempty"`
	FeasibilityScore   *int   `json:"feasibility_score,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	DocumentType       string `json:"document_type,omitempty"`
	ConfidenceScore    int    `json:"confidence_score,omitempty"`
	Summary            string `json:"summary,omitempty"`
}

// Detail is a single item with its AI-generated content.
type Detail struct {
	Item
	RawText                 string   `json:"raw_text,omitempty"`
	TechnicalConsiderations []string `json:"technical_considerations,omitempty"`
	RecommendedStack        []string `json:"recommended_stack,omitempty"`
}

// Stats aggregates item counts for the statistics view.
type Stats struct {
	Progress           ProgressStats `json:"progress"`
	ImplementationTime TimeStats     `json:"implementation_time"`
	FeasibilityScores  []int         `json:"feasibility_scores"`
}

// ProgressStats counts items by completion.
type ProgressStats struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
}

// TimeStats counts items per implementation horizon. The JSON keys are the
// backend's Spanish labels.
type TimeStats struct {
	ShortTerm  int `json:"Corto Plazo"`
	MediumTerm int `json:"Mediano Plazo"`
	LongTerm   int `json:"Largo Plazo"`
}

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CreatedResponse acknowledges a created text item.
type CreatedResponse struct {
	Status string `json:"status,omitempty"`
	ID     int    `json:"id"`
}

// User is an entry of the backend user list.
type User struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

// BackendConfig is the AI backend configuration accepted by POST /api/config.
type BackendConfig struct {
	Host        string `json:"host"`
	LogicModel  string `json:"logic_model"`
	VisionModel string `json:"vision_model"`
}

// ServiceStatus is returned by the unauthenticated GET /api/status.
type ServiceStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
