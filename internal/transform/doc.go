// Package transform groups the collaborators the asset tasks pipe bytes
// through. Each sub-package owns one asset class and knows nothing about
// source sets, destinations or the task graph:
//
//	style    sass compilation (external binary), vendor prefixes, CSS minification
//	script   concatenation and JavaScript minification
//	imgcodec AVIF/WebP re-encoding and lossless optimization
//	sprite   SVG "stack" sprite assembly
//	font     sfnt/WOFF/WOFF2 conversion
//	include  HTML fragment inclusion
package transform
