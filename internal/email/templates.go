package email

import "html/template"

const layout = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #4F46E5;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{template "title" .}}</h1>
    </div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        {{template "body" .}}
    </div>
    <div class="footer">
        {{template "footer" .}}
        <p>&copy; 2026 TutorHub. All rights reserved.</p>
    </div>
</body>
</html>
`

const linkBlock = `
        <a href="{{.Link}}" class="button" style="color: white !important;">{{template "action" .}}</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>
`

var (
	verificationTmpl = mustParse("verification", `
{{define "title"}}Welcome to TutorHub!{{end}}
{{define "action"}}Verify Email Address{{end}}
{{define "body"}}
        <h2>Verify your email address</h2>
        <p>Thank you for signing up! Please click the button below to verify your email address and activate your account.</p>
`+linkBlock+`
        <p style="margin-top: 30px;">If you didn't create an account, you can safely ignore this email.</p>
{{end}}
{{define "footer"}}<p>This link will expire in 24 hours.</p>{{end}}
`)

	passwordResetTmpl = mustParse("passwordReset", `
{{define "title"}}Password Reset Request{{end}}
{{define "action"}}Reset Password{{end}}
{{define "body"}}
        <h2>Reset your password</h2>
        <p>You requested to reset your password. Click the button below to create a new password.</p>
`+linkBlock+`
        <p style="margin-top: 30px;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
{{end}}
{{define "footer"}}<p>This link will expire in 1 hour.</p>{{end}}
`)

	tutorApprovedTmpl = mustParse("tutorApproved", `
{{define "title"}}You're approved!{{end}}
{{define "action"}}Sign In{{end}}
{{define "body"}}
        <h2>Your tutor account is active</h2>
        <p>An administrator has reviewed and approved your tutor application. You can now sign in and start accepting students.</p>
`+linkBlock+`
{{end}}
{{define "footer"}}{{end}}
`)

	tutorRejectedTmpl = mustParse("tutorRejected", `
{{define "title"}}Your tutor application{{end}}
{{define "action"}}{{end}}
{{define "body"}}
        <h2>Application not approved</h2>
        <p>Thank you for applying to tutor with us. After review, we are unable to approve your application at this time.</p>
        <p>If you believe this was a mistake, reply to this email and our team will take another look.</p>
{{end}}
{{define "footer"}}{{end}}
`)
)

func mustParse(name, blocks string) *template.Template {
	t := template.Must(template.New(name).Parse(layout))
	return template.Must(t.Parse(blocks))
}
