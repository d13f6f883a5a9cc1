package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	minLatencyEnvVar     = "BGV_MIN_LATENCY"
	largePayloadEnvVar   = "BGV_LARGE_PAYLOAD_BYTES"
	requestTimeoutEnvVar = "BGV_REQUEST_TIMEOUT"
	rateLimitEnvVar      = "BGV_RATE_LIMIT"
	rateBurstEnvVar      = "BGV_RATE_BURST"
	refreshPolicyEnvVar  = "BGV_REFRESH_POLICY"
	publicPathsEnvVar    = "BGV_PUBLIC_PATHS"
	allowInsecureEnvVar  = "BGV_ALLOW_INSECURE"

	DefaultMinLatency            = 800 * time.Millisecond
	DefaultLargePayloadThreshold = 1 << 20 // 1 MiB
	DefaultRequestTimeout        = 30 * time.Second
)

type Gateway struct {
	file *fileConfig
}

var _ GatewayConfig = Gateway{}

// GetMinLatency is the latency floor applied to small JSON calls.
func (g Gateway) GetMinLatency() time.Duration {
	v := GetEnv(minLatencyEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.MinLatency }, ""))
	return parseDuration(v, DefaultMinLatency)
}

// GetLargePayloadThreshold is the payload size in bytes above which the latency floor is skipped.
func (g Gateway) GetLargePayloadThreshold() int64 {
	v := GetEnv(largePayloadEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.LargePayloadThreshold }, ""))
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return DefaultLargePayloadThreshold
	}
	return n
}

func (g Gateway) GetRequestTimeout() time.Duration {
	v := GetEnv(requestTimeoutEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.RequestTimeout }, ""))
	return parseDuration(v, DefaultRequestTimeout)
}

// GetRateLimit returns the outbound requests per second. Zero disables limiting.
func (g Gateway) GetRateLimit() float64 {
	v := GetEnv(rateLimitEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.RateLimit }, ""))
	r, err := strconv.ParseFloat(v, 64)
	if err != nil || r < 0 {
		return 0
	}
	return r
}

func (g Gateway) GetRateBurst() int {
	v := GetEnv(rateBurstEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.RateBurst }, ""))
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// GetRefreshPolicy returns "share" (late callers await the in-flight refresh)
// or "drop" (late callers get no token).
func (g Gateway) GetRefreshPolicy() string {
	v := strings.ToLower(GetEnv(refreshPolicyEnvVar, g.file.str(func(f *fileConfig) string { return f.Gateway.RefreshPolicy }, "share")))
	if v != "drop" {
		return "share"
	}
	return v
}

// GetPublicPaths returns extra public route prefixes on top of the built-in candidate routes.
func (g Gateway) GetPublicPaths() []string {
	if v := GetEnv(publicPathsEnvVar, ""); v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		return paths
	}
	if g.file != nil {
		return g.file.Gateway.PublicPaths
	}
	return nil
}

func (g Gateway) GetAllowInsecure() bool {
	if v := GetEnv(allowInsecureEnvVar, ""); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return g.file != nil && g.file.Gateway.AllowInsecure
}

func parseDuration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
