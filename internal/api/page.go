// SPDX-License-Identifier: MIT

package api

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/ManuGH/playercount/internal/aggregate"
	"github.com/ManuGH/playercount/internal/log"
)

const unavailableMessage = "Player counts are temporarily unavailable. Please try again later."

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Game Player Counts</title>
</head>
<body>
    <h1>Current Players in Games</h1>
{{- if .Message}}
    <p class="notice">{{.Message}}</p>
{{- end}}
    <table border="1">
        <thead>
            <tr>
                <td><strong>Total Users</strong></td>
                <td>{{.TotalUsers}}</td>
            </tr>
            <tr>
                <th>Game Title</th>
                <th>Current Players</th>
            </tr>
        </thead>
        <tbody>
{{- range .Games}}
            <tr>
                <td>{{.Title}}</td>
                <td>{{.Count}}</td>
            </tr>
{{- end}}
        </tbody>
    </table>
</body>
</html>
`))

type pageData struct {
	TotalUsers string
	Games      []aggregate.Ranked
	Message    string
}

// handlePage renders the ranked table. A failed pass renders an empty table
// and a generic notice; the cause is only logged.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	status := http.StatusOK

	out, err := s.runner.Run(r.Context())
	if err != nil {
		status, _ = statusFor(err)
		data.Message = unavailableMessage
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldEvent, "page.degraded").Msg("rendering empty player table")
	} else {
		data.TotalUsers = strconv.FormatInt(out.TotalUsers, 10)
		data.Games = out.Ranked
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("render player page")
	}
}
