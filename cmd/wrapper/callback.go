package main

/*
typedef void (*StringArrayDelegate)(const char** values, int count);

void callStringArray(StringArrayDelegate cb, const char** values, int count) {
	cb(values, count);
}
*/
import "C"
