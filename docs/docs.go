// Package docs holds the Swagger document served on /swagger/*any.
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
        "/health": {
            "get": {
                "tags": [
                    "system"
                ],
                "summary": "Health check",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/auth/sign-up": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Register an operator",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "id"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AuthCredentials"
                        }
                    }
                ]
            }
        },
        "/auth/sign-in": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Sign in",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "token"
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.AuthCredentials"
                        }
                    }
                ]
            }
        },
        "/api/v1/grid/state": {
            "get": {
                "tags": [
                    "grid"
                ],
                "summary": "Get grid snapshot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Snapshot"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/start": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Start the grid",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "description": "Runs the startup sequence. Allowed from OFFLINE or BLACKOUT.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/stop": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Controlled shutdown",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "description": "Runs the shutdown sequence. Allowed from STABLE or ALERT.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/emergency-stop": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Emergency shutdown",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/handlers.EmergencyStopRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/settings": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Update a set point",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SettingRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/alert/ack": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Acknowledge alert",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/substations/{id}/toggle": {
            "post": {
                "tags": [
                    "grid"
                ],
                "summary": "Toggle substation breaker",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Substation id (1-7)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/faults/line/{id}": {
            "post": {
                "tags": [
                    "faults"
                ],
                "summary": "Inject a transmission line fault",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Line id (1-7)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/faults/substation/{id}": {
            "post": {
                "tags": [
                    "faults"
                ],
                "summary": "Inject a substation fault",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Substation id (1-7)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/faults/load-surge": {
            "post": {
                "tags": [
                    "faults"
                ],
                "summary": "Inject a city load surge",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/grid/faults/reset": {
            "post": {
                "tags": [
                    "faults"
                ],
                "summary": "Clear all faults",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/logs": {
            "get": {
                "tags": [
                    "history"
                ],
                "summary": "List operator log",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Start of range",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "End of range. Date-only treated as end of day.",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Event kind",
                        "name": "kind",
                        "in": "query",
                        "enum": [
                            "SEQUENCE",
                            "ALERT",
                            "TRIP",
                            "OPERATOR",
                            "SCENARIO",
                            "FAULT",
                            "SYSTEM"
                        ]
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/telemetry": {
            "get": {
                "tags": [
                    "history"
                ],
                "summary": "Telemetry history",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/errorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Start of range",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "End of range",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Maximum samples (default 600)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                }
            }
        },
        "handlers.AuthCredentials": {
            "type": "object",
            "properties": {
                "username": {
                    "type": "string",
                    "example": "dispatcher"
                },
                "password": {
                    "type": "string",
                    "example": "s3cr3t"
                }
            }
        },
        "handlers.EmergencyStopRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string",
                    "example": "Smoke reported in turbine hall"
                }
            }
        },
        "handlers.SettingRequest": {
            "type": "object",
            "required": [
                "key",
                "value"
            ],
            "properties": {
                "key": {
                    "type": "string",
                    "example": "targetVoltage"
                },
                "value": {
                    "type": "number",
                    "example": 1.02
                }
            }
        },
        "models.GridMetrics": {
            "type": "object",
            "properties": {
                "plant_output_mw": {
                    "type": "number"
                },
                "city_load_mw": {
                    "type": "number"
                },
                "total_demand_mw": {
                    "type": "number"
                },
                "grid_frequency_hz": {
                    "type": "number"
                },
                "system_voltage_pu": {
                    "type": "number"
                },
                "temperature_c": {
                    "type": "number"
                },
                "rocof_hz_s": {
                    "type": "number"
                }
            }
        },
        "models.GridSettings": {
            "type": "object",
            "properties": {
                "plant_dispatch_mw": {
                    "type": "number"
                },
                "target_voltage_pu": {
                    "type": "number"
                },
                "target_frequency_hz": {
                    "type": "number"
                }
            }
        },
        "models.Substation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "load_mw": {
                    "type": "number"
                },
                "voltage_kv": {
                    "type": "number"
                }
            }
        },
        "models.TransmissionLine": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "integer"
                },
                "from": {
                    "type": "string"
                },
                "to": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "models.FaultState": {
            "type": "object",
            "properties": {
                "line_fault": {
                    "type": "integer"
                },
                "substation_fault": {
                    "type": "integer"
                },
                "load_surge": {
                    "type": "boolean"
                }
            }
        },
        "models.Snapshot": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "OFFLINE",
                        "ENERGIZING",
                        "STABLE",
                        "ALERT",
                        "SHUTTING_DOWN",
                        "BLACKOUT"
                    ]
                },
                "metrics": {
                    "$ref": "#/definitions/models.GridMetrics"
                },
                "settings": {
                    "$ref": "#/definitions/models.GridSettings"
                },
                "substations": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Substation"
                    }
                },
                "lines": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.TransmissionLine"
                    }
                },
                "faults": {
                    "$ref": "#/definitions/models.FaultState"
                },
                "logs": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Grid Supervisor API",
	Description:      "Supervisory control of a simulated power plant and its city distribution grid.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
