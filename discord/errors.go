package discord

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ErrorClass groups transport failures for logging and metric labels. Failures are
// never retried; the class only tells operators why a message was lost.
type ErrorClass int

const (
	ErrorClassUnknown ErrorClass = iota
	// ErrorClassRateLimited indicates Discord rejected the request with 429.
	ErrorClassRateLimited
	// ErrorClassForbidden indicates missing access or permissions in the channel.
	ErrorClassForbidden
	// ErrorClassNotFound indicates the channel or message no longer exists.
	ErrorClassNotFound
	// ErrorClassServer indicates a 5xx from Discord.
	ErrorClassServer
	// ErrorClassNetwork indicates the request never got a response.
	ErrorClassNetwork
)

// String returns the metric label for the class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRateLimited:
		return "rate_limited"
	case ErrorClassForbidden:
		return "forbidden"
	case ErrorClassNotFound:
		return "not_found"
	case ErrorClassServer:
		return "server"
	case ErrorClassNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ClassifyError maps a send or edit error to an ErrorClass. Typed discordgo errors
// are checked first, then the message text.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return ErrorClassRateLimited
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
				return ErrorClassForbidden
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
				return ErrorClassNotFound
			}
		}
		if rest.Response != nil {
			return classifyStatus(rest.Response.StatusCode)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return ErrorClassRateLimited
	case strings.Contains(lower, "403") || strings.Contains(lower, "missing access") || strings.Contains(lower, "missing permissions"):
		return ErrorClassForbidden
	case strings.Contains(lower, "404") || strings.Contains(lower, "unknown channel") || strings.Contains(lower, "unknown message"):
		return ErrorClassNotFound
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "504"):
		return ErrorClassServer
	}

	networkPatterns := []string{
		"connection reset",
		"connection refused",
		"timeout",
		"no such host",
		"eof",
		"broken pipe",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassNetwork
		}
	}
	return ErrorClassUnknown
}

func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimited
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return ErrorClassForbidden
	case code == http.StatusNotFound:
		return ErrorClassNotFound
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnknown
	}
}
