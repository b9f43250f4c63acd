// Package services contains the external collaborators driven by the entity
// handlers: the HTTPD vhost writer, the DNS zone writer, the MTA map writer,
// the FTPD user writer, and the SQL server driver. Each collaborator sits
// behind a narrow interface so handlers can be tested against fakes.
//
// Every file-producing collaborator renders a named template and replaces the
// target file atomically (write-temp-then-rename); a crashed pass never
// leaves a half-written config behind.
package services
