/*
Package jsrender integrates javascript files into a tpl.Renderer.

Init registers the "js" format (application/javascript) with the renderer
and adds two helpers to html templates:

	{{ js "foo.js" "bar.js" }}

renders

	<script src="/js/foo.js"></script><script src="/js/bar.js"></script>

and {{ .Value | escape_js }} makes a value safe inside a javascript string.

Files are optionally minified by one of the backends of package minifier and
cached in a cache folder. Package ginjs serves them over HTTP.
*/
package jsrender
