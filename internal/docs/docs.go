// Package docs registra la especificación OpenAPI servida en /swagger.
// Mantener en sincronía con las anotaciones godoc de los handlers (swag init -g cmd/api/main.go -o internal/docs).
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
        "/families": {
            "post": {
                "tags": ["families"],
                "summary": "Crear familia",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/createFamilyRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}
            }
        },
        "/families/children": {
            "post": {
                "tags": ["families"],
                "summary": "Registrar hijo",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/addChildRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/families/members": {
            "get": {
                "tags": ["families"],
                "summary": "Listar miembros de mi familia",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/me": {
            "get": {
                "tags": ["families"],
                "summary": "Usuario autenticado",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            }
        },
        "/geofences": {
            "get": {
                "tags": ["geofences"],
                "summary": "Listar geocercas",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            },
            "post": {
                "tags": ["geofences"],
                "summary": "Crear geocerca",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/geofenceRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/geofences/{geofenceID}": {
            "get": {
                "tags": ["geofences"],
                "summary": "Obtener geocerca",
                "parameters": [{"type": "string", "in": "path", "name": "geofenceID", "required": true}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "tags": ["geofences"],
                "summary": "Actualizar geocerca",
                "parameters": [
                    {"type": "string", "in": "path", "name": "geofenceID", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/geofenceRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["geofences"],
                "summary": "Borrar geocerca",
                "parameters": [{"type": "string", "in": "path", "name": "geofenceID", "required": true}],
                "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/children/{childID}/geofence-events": {
            "get": {
                "tags": ["geofence-events"],
                "summary": "Historial de eventos de geocercas de un hijo",
                "parameters": [
                    {"type": "string", "in": "path", "name": "childID", "required": true},
                    {"type": "integer", "in": "query", "name": "limit"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/locations/evaluate": {
            "post": {
                "tags": ["locations"],
                "summary": "Evaluar ubicación",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/evaluateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/evaluateResponse"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "429": {"description": "Too Many Requests"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        }
    },
    "definitions": {
        "createFamilyRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}, "parentName": {"type": "string"}}
        },
        "addChildRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}}
        },
        "schedule": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"type": "integer", "minimum": 0, "maximum": 6}},
                "startTime": {"type": "string", "example": "08:00"},
                "endTime": {"type": "string", "example": "15:00"}
            }
        },
        "geofenceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["circle", "polygon"]},
                "childId": {"type": "string"},
                "latitude": {"type": "number", "minimum": -90, "maximum": 90},
                "longitude": {"type": "number", "minimum": -180, "maximum": 180},
                "radius": {"type": "number", "minimum": 50, "maximum": 5000},
                "isActive": {"type": "boolean"},
                "schedule": {"$ref": "#/definitions/schedule"},
                "notifyEnter": {"type": "boolean"},
                "notifyExit": {"type": "boolean"}
            }
        },
        "evaluateRequest": {
            "type": "object",
            "required": ["latitude", "longitude"],
            "properties": {
                "latitude": {"type": "number", "minimum": -90, "maximum": 90},
                "longitude": {"type": "number", "minimum": -180, "maximum": 180}
            }
        },
        "evaluateResponse": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "geofenceId": {"type": "string"},
                            "geofenceName": {"type": "string"},
                            "eventType": {"type": "string", "enum": ["enter", "exit"]},
                            "timestamp": {"type": "string", "format": "date-time"}
                        }
                    }
                },
                "currentZones": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "family-locator API",
	Description:      "Geocercas familiares y evaluación de ubicaciones.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
