package interfaces

// Service is a transport exposing the application services. The daemon
// starts it once the services are ready and stops it before closing them.
type Service interface {
	Start() error
	Stop()
}
