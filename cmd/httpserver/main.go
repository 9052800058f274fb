package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"httpstream/internal/headers"
	"httpstream/internal/response"
	"httpstream/internal/server"
)

const PORT = 42069

func main() {
	srv, err := server.Serve(PORT, func(w *response.Writer, h headers.Headers, body []byte) {
		w.Headers = headers.New()
		w.Headers.Set("content-type", "text/html")

		switch h.GetString(headers.KeyPath) {
		case "/yourproblem":
			w.Status = response.BAD_REQUEST
			w.SetBody([]byte(`
<html>
  <head>
    <title>400 Bad Request</title>
  </head>
  <body>
    <h1>Bad Request</h1>
    <p>Your request honestly kinda sucked.</p>
  </body>
</html>
			`))
		case "/myproblem":
			w.Status = response.INTERNAL_SERVER_ERROR
			w.SetBody([]byte(`
<html>
  <head>
    <title>500 Internal Server Error</title>
  </head>
  <body>
    <h1>Internal Server Error</h1>
    <p>Okay, you know what? This one is on me.</p>
  </body>
</html>
			`))
		default:
			w.Status = response.OK
			w.SetBody([]byte(`
<html>
  <head>
    <title>200 OK</title>
  </head>
  <body>
    <h1>Success!</h1>
    <p>Your request was an absolute banger.</p>
  </body>
</html>			`))
		}
	})

	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}

	defer srv.Close()
	log.Println("Server started on port:", PORT)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Server gracefully stopped")
}
