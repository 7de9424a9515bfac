package checkout

import (
	"context"
	"runtime"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/paymentsense"
	"go.uber.org/zap"
)

// ModuleName is reported by the info endpoint
const ModuleName = "Paymentsense Gateway"

const notAvailable = "N/A"

// DiagnosticsRunner runs the gateway connectivity and settings checks
type DiagnosticsRunner interface {
	Run(ctx context.Context) (*paymentsense.Report, error)
}

// DiagnosticsService answers the info and connection info requests
type DiagnosticsService struct {
	runner        DiagnosticsRunner
	logger        *zap.Logger
	version       string
	latestVersion string
	// extendedInfo allows the extended module information to be requested
	extendedInfo bool
}

// NewDiagnosticsService creates the diagnostics flow. latestVersion may be
// empty when no release feed is configured.
func NewDiagnosticsService(runner DiagnosticsRunner, version, latestVersion string, extendedInfo bool, logger *zap.Logger) *DiagnosticsService {
	if latestVersion == "" {
		latestVersion = notAvailable
	}
	return &DiagnosticsService{
		runner:        runner,
		logger:        logger,
		version:       version,
		latestVersion: latestVersion,
		extendedInfo:  extendedInfo,
	}
}

// ConnectionInfo runs the checks and returns the connection, settings and
// system time messages
func (s *DiagnosticsService) ConnectionInfo(ctx context.Context) (paymentsense.Info, error) {
	report, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	return report.Messages(), nil
}

// ModuleInfo returns the module name and version. The extended block with
// the gateway checks is added only when requested and enabled in settings.
func (s *DiagnosticsService) ModuleInfo(ctx context.Context, extended, withConnectionInfo bool) (paymentsense.Info, error) {
	info := paymentsense.Info{}.
		Add("Module Name", ModuleName).
		Add("Module Installed Version", s.version)

	if !extended || !s.extendedInfo {
		return info, nil
	}

	info = info.
		Add("Module Latest Version", s.latestVersion).
		Add("Go Version", runtime.Version()).
		Add("Platform", runtime.GOOS+"/"+runtime.GOARCH)

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Warn("Gateway checks failed for module info", zap.Error(err))
		return nil, err
	}

	connectivity := "Fail"
	if report.Connectivity() {
		connectivity = "Successful"
	}
	info = info.
		Add("Connectivity on port 4430", connectivity).
		Add("System Time", report.SystemTimeStatus).
		Add("Gateway settings message", report.Settings.Text)

	if withConnectionInfo {
		info = info.Add("Connection info", report.ConnectionInfo())
	}
	return info, nil
}
