package urls

// SandboxAPI is the attribution API used by sandbox installs.
const SandboxAPI = "https://api.sandbox.tapp.so/v1/"

// ProductionAPI is the attribution API used by production installs.
const ProductionAPI = "https://api.tapp.so/v1/"

// LinkDomain is the registrable domain of links this client resolves.
const LinkDomain = "tapp.so"

// LinkTokenParam is the query parameter that carries a link token.
const LinkTokenParam = "adj_t"

// GettingStarted is the integration guide printed by tappctl.
const GettingStarted = "https://docs.tapp.so/getting-started/"

// Troubleshooting covers the common bootstrap failures.
const Troubleshooting = "https://docs.tapp.so/troubleshooting/"

// APIBase returns the base URL for the named environment.
// Unknown environments map to the sandbox API.
func APIBase(environment string) string {
	if environment == "production" {
		return ProductionAPI
	}
	return SandboxAPI
}
