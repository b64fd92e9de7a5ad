package main

// General API documentation for swaggo. Run `swag init -g cmd/lmgate/docs.go -o docs` to regenerate.
//
// @title           lmgate API
// @version         1.0
// @description     Admission-controlled HTTP gateway in front of a local llama-server instance.
//
// @contact.name   lmgate maintainers
// @contact.url    https://github.com/your-org/lmgate
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
