package server

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var resetPasswordPage = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Reset Password - The Kitchen Table</title>
</head>
<body>
<h1>Choose a new password</h1>
<form id="reset" data-token="{{.Token}}">
<label>New password <input type="password" name="password" minlength="8" required></label>
<button type="submit">Reset password</button>
</form>
<p id="result"></p>
<script>
document.getElementById("reset").addEventListener("submit", async function (e) {
	e.preventDefault();
	const resp = await fetch("/api/auth/reset-password", {
		method: "POST",
		headers: {"Content-Type": "application/json"},
		body: JSON.stringify({token: this.dataset.token, password: this.password.value})
	});
	const body = await resp.json();
	document.getElementById("result").textContent = body.message || body.error;
});
</script>
</body>
</html>
`))

// handleResetPasswordPage serves the page linked from the reset email. The
// token is only checked when the form is submitted.
func (s *Server) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := resetPasswordPage.Execute(w, struct{ Token string }{Token: chi.URLParam(r, "token")})
	if err != nil {
		s.log.WithError(err).Error("failed to render reset password page")
	}
}
