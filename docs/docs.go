// Package docs holds the OpenAPI document served by the swagger UI. Keep it
// in sync with the @Summary and @Router annotations on the handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/admin/tutors": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List pending tutors",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.TutorListResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Approve or reject a tutor",
                "parameters": [
                    {"description": "Decision", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.TutorApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Request password reset",
                "parameters": [
                    {"description": "Email", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "User login",
                "parameters": [
                    {"description": "Credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/resend-verification": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Resend verification email",
                "parameters": [
                    {"description": "Email", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.ResendVerificationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Reset password",
                "parameters": [
                    {"description": "Token and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Account details", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.SignupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.UserMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/verify-email": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify email address",
                "parameters": [
                    {"description": "Verification token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.VerifyEmailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.UserMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "auth.ForgotPasswordRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "auth.Identity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "isApproved": {"type": "boolean"},
                "isEmailVerified": {"type": "boolean"}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "auth.LoginResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/user.User"}, "token": {"type": "string"}}
        },
        "auth.MeResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/auth.Identity"}}
        },
        "auth.ResendVerificationRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "auth.ResetPasswordRequest": {
            "type": "object",
            "required": ["token", "newPassword"],
            "properties": {
                "token": {"type": "string"},
                "newPassword": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "auth.SignupRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "TUTOR"]},
                "bio": {"type": "string"},
                "subjects": {"type": "array", "items": {"type": "string"}}
            }
        },
        "auth.TutorApprovalRequest": {
            "type": "object",
            "required": ["userId", "action"],
            "properties": {
                "userId": {"type": "string"},
                "action": {"type": "string", "enum": ["approve", "reject"]}
            }
        },
        "auth.TutorListResponse": {
            "type": "object",
            "properties": {"tutors": {"type": "array", "items": {"$ref": "#/definitions/user.User"}}}
        },
        "auth.UserMessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "user": {"$ref": "#/definitions/user.User"}}
        },
        "auth.VerifyEmailRequest": {
            "type": "object",
            "required": ["token"],
            "properties": {"token": {"type": "string"}, "userId": {"type": "string"}}
        },
        "httputil.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "string"}}
        },
        "httputil.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "user.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "approvalStatus": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "isApproved": {"type": "boolean"},
                "isEmailVerified": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "lastActive": {"type": "string"},
                "student": {"$ref": "#/definitions/user.StudentProfile"},
                "tutor": {"$ref": "#/definitions/user.TutorProfile"}
            }
        },
        "user.StudentProfile": {
            "type": "object",
            "properties": {"createdAt": {"type": "string"}}
        },
        "user.TutorProfile": {
            "type": "object",
            "properties": {
                "bio": {"type": "string"},
                "subjects": {"type": "array", "items": {"type": "string"}},
                "rating": {"type": "number"},
                "reviews": {"type": "integer"},
                "experience": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the access token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "TutorHub Identity API",
	Description:      "Accounts, sessions and tutor approval for the TutorHub platform.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
