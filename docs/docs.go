// Package docs registers the dashboard API description with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/visualize": {
            "post": {
                "description": "Parse CSV or JSON text, infer a category and a value field and draw one bar per row",
                "consumes": ["text/csv", "application/json", "text/plain"],
                "produces": ["application/json"],
                "tags": ["visualize"],
                "summary": "Visualize raw data",
                "parameters": [
                    {"type": "string", "description": "csv or json", "name": "format", "in": "query"},
                    {"type": "string", "description": "normalizeNames, trimStrings, removeEmpty; comma separated", "name": "transform", "in": "query"},
                    {"type": "boolean", "description": "One bar per distinct category with summed values", "name": "group", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Schema and chart frame"},
                    "400": {"description": "Malformed input"},
                    "415": {"description": "Unsupported format"}
                }
            }
        },
        "/feed": {
            "get": {
                "description": "Fetch the backend's ad-hoc data feed and draw it",
                "produces": ["application/json"],
                "tags": ["visualize"],
                "summary": "Visualize the backend feed",
                "parameters": [
                    {"type": "boolean", "description": "One bar per distinct category with summed values", "name": "group", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Schema and chart frame"},
                    "502": {"description": "Backend unavailable"}
                }
            }
        },
        "/tasks": {
            "get": {
                "description": "List submitted and backend-known report tasks, newest first",
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "List tasks",
                "responses": {
                    "200": {"description": "Task history"},
                    "502": {"description": "Backend unavailable"}
                }
            }
        },
        "/tasks/{name}/charts": {
            "get": {
                "description": "Aggregate a task's sales and apply filter and sort parameters",
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Chart frame",
                "parameters": [
                    {"type": "string", "description": "Task name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "description": "company, month or model", "name": "by", "in": "query"},
                    {"type": "string", "description": "Allowed companies, comma separated", "name": "company", "in": "query"},
                    {"type": "string", "description": "Allowed models, comma separated", "name": "model", "in": "query"},
                    {"type": "string", "description": "Allowed years, comma separated", "name": "year", "in": "query"},
                    {"type": "string", "description": "Allowed months, comma separated", "name": "month", "in": "query"},
                    {"type": "integer", "description": "Minimum count", "name": "minCount", "in": "query"},
                    {"type": "number", "description": "Minimum total", "name": "minTotal", "in": "query"},
                    {"type": "string", "description": "count or total", "name": "sort", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "order", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Chart frame"},
                    "400": {"description": "Invalid parameters"},
                    "502": {"description": "Backend unavailable"}
                }
            }
        },
        "/tasks/{name}/chart.svg": {
            "get": {
                "description": "Same as the charts endpoint but returns the SVG markup",
                "produces": ["image/svg+xml"],
                "tags": ["tasks"],
                "summary": "Chart SVG",
                "parameters": [
                    {"type": "string", "description": "Task name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "SVG"},
                    "204": {"description": "Nothing to draw"},
                    "502": {"description": "Backend unavailable"}
                }
            }
        },
        "/tasks/{name}/export": {
            "get": {
                "description": "Export a task's sales or one of its aggregates",
                "produces": ["text/csv", "application/json", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["tasks"],
                "summary": "Export",
                "parameters": [
                    {"type": "string", "description": "Task name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "description": "csv, json or xlsx", "name": "format", "in": "query"},
                    {"type": "string", "description": "company, month or model; empty exports sale records", "name": "by", "in": "query"},
                    {"type": "boolean", "description": "Write to the export directory instead of the response", "name": "save", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "File or export result"},
                    "400": {"description": "Invalid parameters"},
                    "502": {"description": "Backend unavailable"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sales Dashboard API",
	Description:      "Charts, filters and exports over sales report analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
