package server

import "fmt"

// displayServerInfo prints the listening address and the effective limits
func (s *Server) displayServerInfo(addr string, tlsEnabled bool) {
	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	fmt.Printf("careerpath %s listening on %s://%s (TLS mode: %s)\n", s.Version, scheme, addr, s.tlsModeLabel())

	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) tlsModeLabel() string {
	if s.TLSConfig.Mode == "" {
		return "disabled"
	}
	return s.TLSConfig.Mode
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health        - Health check")
	fmt.Println("  GET  /stats         - Server statistics")
	fmt.Println("  POST /match         - Score a resume against a job description")
	fmt.Println("  POST /cover-letter  - Render a cover letter from skills and gaps")
	fmt.Println("  POST /analyze       - Match score and cover letter in one call")
}

func (s *Server) displayAuthInfo() {
	if n := s.APIKeys.Len(); n > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", n)
		if s.keyWatcher != nil {
			fmt.Printf("  - Keys follow Vault secret %s\n", s.keyWatcher.secrets.APIKeys)
		}
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
	if s.RequestTimeout > 0 {
		fmt.Printf("Request timeout: %s\n", s.RequestTimeout)
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter == nil {
		fmt.Println("Rate limiting: DISABLED")
		return
	}
	fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	if s.RateLimit.ByAPIKey {
		fmt.Println("  - Per API key rate limiting enabled")
	}
	if s.RateLimit.ByIP {
		fmt.Println("  - Per IP address rate limiting enabled")
	}
	if len(s.trustedProxies) > 0 {
		fmt.Printf("  - Forwarded client addresses trusted from %v\n", s.trustedProxies)
	}
}
