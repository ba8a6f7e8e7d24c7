// Package websocket serves the interactive dashboard session.
//
// The browser sends a range message whenever a control changes and the
// server replies with a snapshot of the dashboard for that range:
//
//	-> {"type":"range","start":"2011-01-01","end":"2011-02-01","box_scope":"all"}
//	<- {"type":"snapshot","timestamp":"...","data":{...}}
//
// Invalid messages get an error reply with the RFC 7807 title, detail and
// field errors. Each connection is handled sequentially; the Hub only
// counts sessions and closes them on shutdown.
package websocket
