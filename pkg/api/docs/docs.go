// Package docs holds the OpenAPI document of the read API, built from the
// swag annotations on the pkg/api handlers and registered with swag.
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
            "url": "https://github.com/goran-ethernal/MarketSync"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "https://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.HealthResponse"}}
                }
            }
        },
        "/api/v1/cursor": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Synchronization status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/syncer.Status"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/requests": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Requests"],
                "summary": "List requests",
                "parameters": [
                    {"type": "string", "description": "created, has_offers, accepted or 0-2", "name": "lifecycle", "in": "query"},
                    {"type": "string", "description": "Buyer address", "name": "buyer", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RequestsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/requests/{requestId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Requests"],
                "summary": "Get request",
                "parameters": [
                    {"type": "string", "description": "Request id", "name": "requestId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/market.Request"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/requests/{requestId}/offers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Requests"],
                "summary": "List offers of a request",
                "parameters": [
                    {"type": "string", "description": "Request id", "name": "requestId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.OffersResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/offers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Offers"],
                "summary": "List offers",
                "parameters": [
                    {"type": "string", "description": "Request id", "name": "request_id", "in": "query"},
                    {"type": "boolean", "description": "Acceptance flag", "name": "accepted", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.OffersResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/v1/offers/{offerId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Offers"],
                "summary": "Get offer",
                "parameters": [
                    {"type": "string", "description": "Offer id", "name": "offerId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/market.Offer"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "offers": {"type": "integer"},
                "requests": {"type": "integer"},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "api.Pagination": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "has_more": {"type": "boolean"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "api.RequestsResponse": {
            "type": "object",
            "properties": {
                "pagination": {"$ref": "#/definitions/api.Pagination"},
                "requests": {"type": "array", "items": {"$ref": "#/definitions/market.Request"}}
            }
        },
        "api.OffersResponse": {
            "type": "object",
            "properties": {
                "offers": {"type": "array", "items": {"$ref": "#/definitions/market.Offer"}},
                "pagination": {"$ref": "#/definitions/api.Pagination"}
            }
        },
        "market.Request": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "blockNumber": {"type": "integer"},
                "blockTimestamp": {"type": "integer"},
                "buyerAddress": {"type": "string"},
                "buyerId": {"type": "string"},
                "createdAt": {"type": "integer"},
                "description": {"type": "string"},
                "eventName": {"type": "string"},
                "images": {"type": "array", "items": {"type": "string"}},
                "latitude": {"type": "string"},
                "lifecycle": {"type": "integer", "enum": [0, 1, 2]},
                "lockedSellerId": {"type": "string"},
                "longitude": {"type": "string"},
                "requestId": {"type": "string"},
                "requestName": {"type": "string"},
                "sellerIds": {"type": "array", "items": {"type": "string"}},
                "sellersPriceQuote": {"type": "string"},
                "signature": {"type": "string"},
                "transactionHash": {"type": "string"},
                "updatedAt": {"type": "integer"}
            }
        },
        "market.Offer": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "blockNumber": {"type": "integer"},
                "blockTimestamp": {"type": "integer"},
                "eventName": {"type": "string"},
                "images": {"type": "array", "items": {"type": "string"}},
                "isAccepted": {"type": "boolean"},
                "offerId": {"type": "string"},
                "price": {"type": "string"},
                "requestId": {"type": "string"},
                "sellerAddress": {"type": "string"},
                "sellerId": {"type": "string"},
                "signature": {"type": "string"},
                "storeName": {"type": "string"},
                "transactionHash": {"type": "string"}
            }
        },
        "syncer.Status": {
            "type": "object",
            "properties": {
                "cursor": {"type": "integer"},
                "cursor_found": {"type": "boolean"},
                "head": {"type": "integer"},
                "lag": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "MarketSync API",
	Description:      "Read-only API over marketplace requests and offers projected by MarketSync",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
