package mailer

import (
	"strings"
	"time"
)

// resetEmailHTML is the password-reset message body. Placeholders are
// substituted by RenderResetEmail.
const resetEmailHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
</head>
<body style="margin:0;padding:0;background-color:#f0e6d8;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:520px;margin:0 auto;padding:24px;">
    <div style="background-color:#6b4226;border-radius:12px 12px 0 0;padding:20px;text-align:center;">
      <h1 style="color:#ffffff;margin:0;font-size:22px;">Caf&eacute;z&atilde;o da Computa&ccedil;&atilde;o</h1>
    </div>
    <div style="background-color:#ffffff;padding:28px;border-radius:0 0 12px 12px;">
      <p style="font-size:15px;color:#333333;">Ol&aacute;, <strong>{{userName}}</strong>!</p>
      <p style="font-size:15px;color:#333333;">Recebemos um pedido para redefinir a sua senha. Use o c&oacute;digo abaixo para continuar:</p>
      <div style="background-color:#f0e6d8;border-radius:8px;padding:18px;text-align:center;margin:20px 0;">
        <span style="font-size:30px;letter-spacing:8px;font-weight:bold;color:#6b4226;">{{resetCode}}</span>
      </div>
      <p style="font-size:13px;color:#666666;">O c&oacute;digo expira em {{expiryTime}} minutos. Se voc&ecirc; n&atilde;o pediu a redefini&ccedil;&atilde;o, ignore este email.</p>
      <hr style="border:none;border-top:1px solid #eeeeee;margin:24px 0;">
      <p style="font-size:11px;color:#999999;text-align:center;">Enviado em {{currentDate}}</p>
    </div>
  </div>
</body>
</html>`

// ResetCodeTTLMinutes is how long a reset code stays redeemable.
const ResetCodeTTLMinutes = 15

// RenderResetEmail fills the password-reset template for one recipient.
func RenderResetEmail(userName, resetCode string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{{userName}}", userName,
		"{{resetCode}}", resetCode,
		"{{expiryTime}}", "15",
		"{{currentDate}}", now.Format("02/01/2006 15:04"),
	)
	return replacer.Replace(resetEmailHTML)
}
