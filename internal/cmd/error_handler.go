package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itemsapp/itemctl/internal/api"
	"github.com/itemsapp/itemctl/internal/login"
	"github.com/itemsapp/itemctl/internal/validation"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder
	var apiErr *api.APIError
	var unknownEndpoint *api.UnknownEndpointError
	var missingParam *api.MissingPathParamError
	var invalid *validation.Error

	switch {
	case errors.Is(err, login.ErrNoAccessToken):
		msg.WriteString("Login failed: the server accepted the credentials but returned no access token.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check that --base-url points at the Items API, not the web app\n")
		msg.WriteString("  - Use --debug to see the raw response\n")

	case errors.As(err, &invalid):
		fmt.Fprintf(&msg, "Invalid input (%s): %s\n\nNothing was sent to the server.\n", invalid.Field, invalid.Error())

	case errors.As(err, &apiErr):
		detail := api.ExtractError(apiErr, "")
		if detail == "" {
			detail = strings.TrimSpace(string(apiErr.Body))
		}
		if detail != "" {
			fmt.Fprintf(&msg, "API error (HTTP %d): %s\n", apiErr.StatusCode, detail)
		} else {
			fmt.Fprintf(&msg, "API error (HTTP %d)\n", apiErr.StatusCode)
		}
		if apiErr.IsValidation() && len(apiErr.Detail.Issues) > 1 {
			msg.WriteString("\nValidation issues:\n")
			for _, issue := range apiErr.Detail.Issues {
				fmt.Fprintf(&msg, "  - %s: %s\n", issue.Field(), issue.Msg)
			}
		}
		msg.WriteString("\n")
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case errors.As(err, &missingParam):
		fmt.Fprintf(&msg, "Error: %s\n\nPass it with --path %s=<value>. See: itemctl endpoints list\n", missingParam.Error(), missingParam.Param)

	case errors.As(err, &unknownEndpoint):
		fmt.Fprintf(&msg, "Error: %s\n\nRun 'itemctl endpoints list' to see available endpoints.\n", unknownEndpoint.Error())

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check if the Items API server is running\n")
		msg.WriteString("  - Verify the URL: itemctl config show\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the API base URL spelling (--base-url or ITEMS_API_BASE_URL)\n")

	case strings.Contains(err.Error(), "certificate"):
		msg.WriteString("TLS certificate error.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Verify the server's TLS certificate\n")
		msg.WriteString("  - Ensure you're using https:// correctly\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400:
		suggestions.WriteString("  - Check your request parameters\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")
	case 401:
		suggestions.WriteString("  - Your access token may be missing or expired\n")
		suggestions.WriteString("  - Run: itemctl auth login\n")
	case 403:
		suggestions.WriteString("  - You don't have permission for this action\n")
	case 404:
		suggestions.WriteString("  - The resource doesn't exist\n")
		suggestions.WriteString("  - Check the ID is correct\n")
	case 422:
		suggestions.WriteString("  - Validation failed\n")
		suggestions.WriteString("  - Check your input values\n")
	case 429:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Wait and retry, or pass --retries\n")
	case 500, 502, 503, 504:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")
	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
