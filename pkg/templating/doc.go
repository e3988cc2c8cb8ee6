/*
Package templating renders the page templates of a site build.

Two kinds of template live in the source tree. Headers (".hamko" by default)
are parsed once into a shared set and registered under their slash-separated
path relative to the source root, so any page can pull them in with
{{template "layout/base.hamko" .}}. Pages (".mako" by default) are parsed into
a fresh clone of that set and executed; a page may {{define}} blocks that a
header layout fills with {{block}}.

Pages whose output name ends in an HTML extension are rendered through
html/template with contextual escaping, everything else through text/template.
*/
package templating
