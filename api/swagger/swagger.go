package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Material Submission API",
        "description": "Tracks didactic material submissions per school stage, subject, teacher and reference month.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Auth", "description": "Login, token refresh and password change"},
        {"name": "Reference Data", "description": "Profiles, school stages, subjects and submission statuses"},
        {"name": "Users", "description": "Staff and teacher accounts"},
        {"name": "Submissions", "description": "Material submission ledger and lifecycle"},
        {"name": "Reports", "description": "Pending, overdue, statistics and exports"},
        {"name": "Mail", "description": "Attachment relay"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with registration number and password",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "security": [],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the caller password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/submissions": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List submissions",
                "parameters": [
                    {"name": "stageId", "in": "query", "type": "integer"},
                    {"name": "subjectId", "in": "query", "type": "integer"},
                    {"name": "userId", "in": "query", "type": "integer"},
                    {"name": "statusId", "in": "query", "type": "integer"},
                    {"name": "stageIds", "in": "query", "type": "string", "description": "Comma separated stage ids"},
                    {"name": "subjectIds", "in": "query", "type": "string", "description": "Comma separated subject ids"},
                    {"name": "userIds", "in": "query", "type": "string", "description": "Comma separated user ids"},
                    {"name": "statusIds", "in": "query", "type": "string", "description": "Comma separated status ids"},
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month_gte", "in": "query", "type": "integer"},
                    {"name": "month_lte", "in": "query", "type": "integer"},
                    {"name": "year_gte", "in": "query", "type": "integer"},
                    {"name": "year_lte", "in": "query", "type": "integer"},
                    {"name": "school_date_from", "in": "query", "type": "string", "description": "DD-MM-YYYY"},
                    {"name": "school_date_to", "in": "query", "type": "string", "description": "DD-MM-YYYY"},
                    {"name": "deadline_from", "in": "query", "type": "string", "description": "DD-MM-YYYY"},
                    {"name": "deadline_to", "in": "query", "type": "string", "description": "DD-MM-YYYY"},
                    {"name": "has_notes", "in": "query", "type": "boolean"},
                    {"name": "overdue", "in": "query", "type": "boolean"},
                    {"name": "pending_validation", "in": "query", "type": "boolean"},
                    {"name": "stage_name", "in": "query", "type": "string"},
                    {"name": "subject_name", "in": "query", "type": "string"},
                    {"name": "user_name", "in": "query", "type": "string"},
                    {"name": "status_description", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "include_deleted", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string", "description": "Field name, prefix with - for descending"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Submissions"],
                "summary": "Create submission",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate natural key", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Submissions"],
                "summary": "Replace submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Submissions"],
                "summary": "Partially update submission",
                "description": "Date fields sent as null are cleared.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Submissions"],
                "summary": "Soft delete submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/submissions/{id}/validate": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Approve or reject a submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/change-status": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Move a submission to another status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/by-user": {
            "get": {
                "tags": ["Reports"],
                "summary": "Submissions of one user",
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/by-period": {
            "get": {
                "tags": ["Reports"],
                "summary": "Submissions of a reference month and year",
                "parameters": [
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/pending": {
            "get": {
                "tags": ["Reports"],
                "summary": "Submissions in a status, the pending status by default",
                "parameters": [
                    {"name": "statusId", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/overdue": {
            "get": {
                "tags": ["Reports"],
                "summary": "Submissions whose deadline passed while the status is still open",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/stats": {
            "get": {
                "tags": ["Reports"],
                "summary": "Submission counters",
                "parameters": [
                    {"name": "month", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SubmissionStats"}}
                }
            }
        },
        "/submissions/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export filtered submissions",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "parameters": [
                    {"name": "profileId", "in": "query", "type": "integer"},
                    {"name": "profile_name", "in": "query", "type": "string"},
                    {"name": "name", "in": "query", "type": "string"},
                    {"name": "registration_number", "in": "query", "type": "string"},
                    {"name": "national_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/verify-password": {
            "post": {
                "tags": ["Users"],
                "summary": "Check a password against the stored hash",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/profiles": {
            "get": {
                "tags": ["Reference Data"],
                "summary": "List profiles",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reference Data"],
                "summary": "Create profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReferencePayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/school-stages": {
            "get": {
                "tags": ["Reference Data"],
                "summary": "List school stages",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Reference Data"],
                "summary": "List subjects",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submission-statuses": {
            "get": {
                "tags": ["Reference Data"],
                "summary": "List submission statuses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mail/attachments": {
            "post": {
                "tags": ["Mail"],
                "summary": "Queue an attachment for delivery",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "email", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "registration_number": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["registration_number", "password"]
        },
        "RefreshRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {
                "old_password": {"type": "string"},
                "new_password": {"type": "string", "minLength": 6}
            },
            "required": ["old_password", "new_password"]
        },
        "ReferencePayload": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "UserRequest": {
            "type": "object",
            "properties": {
                "profile_id": {"type": "integer"},
                "name": {"type": "string"},
                "registration_number": {"type": "string"},
                "national_id": {"type": "string", "example": "123.456.789-09"},
                "phone": {"type": "string", "example": "(11) 98765-4321"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"}
            },
            "required": ["profile_id", "name", "registration_number", "national_id", "password", "confirm_password"]
        },
        "SubmissionRequest": {
            "type": "object",
            "properties": {
                "stage_id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "status_id": {"type": "integer"},
                "reference_month": {"type": "integer", "minimum": 1, "maximum": 12},
                "reference_year": {"type": "integer"},
                "management_notes": {"type": "string"},
                "school_submission_date": {"type": "string", "example": "15-03-2025"},
                "regional_office_submission_date": {"type": "string", "example": "20-03-2025"},
                "management_validation_date": {"type": "string", "example": "25-03-2025"},
                "trainer_submission_date": {"type": "string", "example": "10-03-2025"},
                "submission_deadline": {"type": "string", "example": "31-03-2025"}
            },
            "required": ["stage_id", "subject_id", "user_id"]
        },
        "ValidateRequest": {
            "type": "object",
            "properties": {
                "approved": {"type": "boolean"},
                "notes": {"type": "string"}
            },
            "required": ["approved"]
        },
        "ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "status_id": {"type": "integer"},
                "notes": {"type": "string"}
            },
            "required": ["status_id"]
        },
        "SubmissionStats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "approved": {"type": "integer"},
                "rejected": {"type": "integer"},
                "month": {"type": "integer"},
                "year": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
