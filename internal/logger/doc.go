// Package logger provides structured logging for ytmp3.
//
// Features:
//   - Multiple log levels (TRACE, DEBUG, INFO, WARN, ERROR)
//   - Component-based filtering
//   - Multiple output formats (text, JSON, color)
//   - Size and age based file rotation
//   - Fields attached to every entry (run id)
//
// Usage:
//
//	cfg := logger.EnvironmentConfig()
//	l, err := logger.CreateLoggerWithRotation(cfg)
//	if err != nil {
//		return err
//	}
//	log := l.WithComponent(logger.ComponentJob)
//	log.Info("Fetched item", map[string]interface{}{
//		"index": 1,
//		"title": "Song",
//	})
//
// Components:
//   - ComponentApp: CLI lifecycle and configuration
//   - ComponentJob: playlist resolution and per-item outcomes
//   - ComponentBackend: media library and yt-dlp invocations
//   - ComponentTranscoder: ffmpeg invocations
//   - ComponentClient: HTTP client
//   - ComponentScript: metadata rewrite script
package logger
