package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var verifyHTML = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Confirmá tu cuenta</h2>
  <p>Gracias por registrarte en Wayfarer. Hacé click en el botón para verificar tu email.</p>
  <p style="margin: 24px 0;">
    <a href="{{.Link}}" style="background:#1a73e8;color:#fff;padding:12px 24px;border-radius:4px;text-decoration:none;">Verificar email</a>
  </p>
  <p>El link expira en {{.TTL}}. Si no creaste esta cuenta, ignorá este correo.</p>
</body>
</html>`))

var resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
  <h2>Restablecer contraseña</h2>
  <p>Recibimos un pedido para restablecer tu contraseña.</p>
  <p style="margin: 24px 0;">
    <a href="{{.Link}}" style="background:#1a73e8;color:#fff;padding:12px 24px;border-radius:4px;text-decoration:none;">Elegir nueva contraseña</a>
  </p>
  <p>El link expira en {{.TTL}} y solo puede usarse una vez. Si no fuiste vos, ignorá este correo.</p>
</body>
</html>`))

type linkVars struct {
	Link string
	TTL  string
}

func renderVerify(link, ttl string) (html, text string, err error) {
	var buf bytes.Buffer
	if err := verifyHTML.Execute(&buf, linkVars{Link: link, TTL: ttl}); err != nil {
		return "", "", err
	}
	text = fmt.Sprintf("Verificá tu email entrando a: %s\nEl link expira en %s.", link, ttl)
	return buf.String(), text, nil
}

func renderReset(link, ttl string) (html, text string, err error) {
	var buf bytes.Buffer
	if err := resetHTML.Execute(&buf, linkVars{Link: link, TTL: ttl}); err != nil {
		return "", "", err
	}
	text = fmt.Sprintf("Para restablecer tu contraseña entrá a: %s\nEl link expira en %s y es de un solo uso.", link, ttl)
	return buf.String(), text, nil
}
