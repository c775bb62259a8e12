/*
Package script provides the interpreter registry the resolver compiles
and executes target update scripts through. pkg/script/lua implements
Interpreter with github.com/yuin/gopher-lua; pkg/script/must implements
it without any third-party dependency, for use in tests.
*/
package script
