package dashboard

import (
	"os"
	"strings"
)

const (
	// DefaultEChartsAssetsHost is where rendered charts load the ECharts runtime from.
	DefaultEChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	envEChartsCDN            = "GO_INSIGHT_ECHARTS_CDN"
)

// EChartsAssetsHost returns the assets host, respecting GO_INSIGHT_ECHARTS_CDN if set.
func EChartsAssetsHost() string {
	if host := strings.TrimSpace(os.Getenv(envEChartsCDN)); host != "" {
		return ensureTrailingSlash(host)
	}
	return DefaultEChartsAssetsHost
}

func ensureTrailingSlash(value string) string {
	if value == "" || strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
