// Package docs is generated by swag init; regenerate after changing handler annotations.
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
        "/api/v1/auth/token": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["认证"],
                "summary": "获取访问令牌",
                "parameters": [
                    {"description": "用户名和密码", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.tokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "帖子列表",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "创建帖子",
                "parameters": [
                    {"description": "帖子内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.postRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "帖子详情",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "编辑帖子",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true},
                    {"description": "帖子内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.postRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "删除帖子",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/posts/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "评论列表",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["评论"],
                "summary": "发表评论",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true},
                    {"description": "评论内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.commentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/groups/{slug}/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子流"],
                "summary": "社区帖子",
                "parameters": [
                    {"type": "string", "description": "社区 slug", "name": "slug", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/users/{username}/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子流"],
                "summary": "作者帖子",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/follow": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["帖子流"],
                "summary": "关注流",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/follow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "关注作者",
                "parameters": [
                    {"description": "作者用户名", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.followRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/unfollow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "取消关注",
                "parameters": [
                    {"description": "作者用户名", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.followRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/{username}/following": {
            "get": {
                "tags": ["关系链"],
                "summary": "查询关注列表",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "每页数量", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/{username}/followers": {
            "get": {
                "tags": ["关系链"],
                "summary": "查询粉丝列表",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "每页数量", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handler.commentRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"text": {"type": "string"}}
        },
        "handler.followRequest": {
            "type": "object",
            "required": ["author"],
            "properties": {"author": {"type": "string"}}
        },
        "handler.postRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"group": {"type": "integer"}, "text": {"type": "string"}}
        },
        "handler.tokenRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "response.Response": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "data": {}, "message": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Yatube API",
	Description:      "Posts, groups, comments and follows.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
