package docqa

import "context"

type systemService struct {
	components map[string]Pinger
}

// NewSystemService checks every named component on each health request
func NewSystemService(components map[string]Pinger) SystemService {
	return &systemService{
		components: components,
	}
}

func (s *systemService) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Status:     "healthy",
		Components: make(map[string]ComponentStatus, len(s.components)),
	}

	for name, component := range s.components {
		status.Components[name] = ComponentUp
		if err := component.Ping(ctx); err != nil {
			status.Components[name] = ComponentDown
			status.Status = "unhealthy"
		}
	}

	return status, nil
}

// PingFunc adapts a plain function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
