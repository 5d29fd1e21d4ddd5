package usercontext

// Shared Locals keys used across handlers and middlewares
const (
	KeyPrincipal = "PRINCIPAL"
)
