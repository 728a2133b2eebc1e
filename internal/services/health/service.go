package health

// Configurable is implemented by every pluggable provider.
type Configurable interface {
	IsConfigured() bool
}

// Service encapsulates health-related checks.
type Service struct {
	structuring Configurable
	generation  Configurable
	ocr         Configurable
	storage     string
	queue       string
	database    bool
}

// Status is the payload served by GET /health.
type Status struct {
	OK        bool            `json:"ok"`
	Providers map[string]bool `json:"providers"`
	Storage   string          `json:"storage"`
	Queue     string          `json:"queue"`
	Database  string          `json:"database"`
}

// NewService constructs a new health service.
func NewService(structuring, generation, ocr Configurable, storage, queue string, database bool) *Service {
	return &Service{
		structuring: structuring,
		generation:  generation,
		ocr:         ocr,
		storage:     storage,
		queue:       queue,
		database:    database,
	}
}

// Status reports liveness plus which providers are configured. Unconfigured
// providers degrade features but never make the service unhealthy.
func (s *Service) Status() Status {
	database := "memory"
	if s.database {
		database = "postgres"
	}
	return Status{
		OK: true,
		Providers: map[string]bool{
			"structuring": configured(s.structuring),
			"generation":  configured(s.generation),
			"ocr":         configured(s.ocr),
		},
		Storage:  s.storage,
		Queue:    s.queue,
		Database: database,
	}
}

func configured(c Configurable) bool {
	return c != nil && c.IsConfigured()
}
