package httpapi

// maxBodyBytes bounds request bodies on JSON endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum request body size; n <= 0 restores 1 MiB.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// allMethods stands in for a "*" method list; the CORS middleware matches
// methods literally.
var allMethods = []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

// CORS lists. Empty lists fall back to allow-all.
var (
	corsAllowedOrigins = []string{"*"}
	corsAllowedMethods = allMethods
	corsAllowedHeaders = []string{"*"}
)

// SetCORSOptions configures the CORS middleware installed by NewMux.
func SetCORSOptions(origins, methods, headers []string) {
	corsAllowedOrigins = orWildcard(origins)
	corsAllowedHeaders = orWildcard(headers)
	corsAllowedMethods = allMethods
	if m := orWildcard(methods); !(len(m) == 1 && m[0] == "*") {
		corsAllowedMethods = m
	}
}

func orWildcard(v []string) []string {
	if len(v) == 0 {
		return []string{"*"}
	}
	return append([]string(nil), v...)
}
