package server

import _ "embed"

//go:embed assets/graphiql.html
var graphiqlPage []byte

//go:embed assets/index.html
var indexPage []byte
