package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pingcap/errors"
	"github.com/urfave/cli"

	"github.com/aclisp/nanoactor"
	"github.com/aclisp/nanoactor/cluster"
	"github.com/aclisp/nanoactor/id"
)

// greeter is the demo actor hosted by the server subcommand: a single
// method taking and returning a name. The client and reconnect-demo
// subcommands do not call it; they only report connection state.
type greeter struct {
	id   id.ActorId
	name string
}

func (g *greeter) ActorID() id.ActorId { return g.id }

func (g *greeter) Greet(ctx context.Context, from *string) (*string, error) {
	reply := fmt.Sprintf("%s says hello to %s", g.name, *from)
	return &reply, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "nanoactor"
	app.Description = "Distributed actor runtime demo: run a server, a client, or a reconnect drill"
	app.Commands = []cli.Command{
		{
			Name: "server",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "listen,l", Usage: "listen address", Value: "127.0.0.1:34650"},
			},
			Action: runServer,
		},
		{
			Name: "client",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "connect,c", Usage: "server address to dial", Value: "127.0.0.1:34650"},
				cli.StringFlag{Name: "name,n", Usage: "this client's greeter name", Value: "Client"},
			},
			Action: runClient,
		},
		{
			Name:   "reconnect-demo",
			Usage:  "dial a server and print every ClientManager state transition, to observe reconnect-with-backoff behavior",
			Flags:  []cli.Flag{cli.StringFlag{Name: "connect,c", Usage: "server address to dial", Value: "127.0.0.1:34650"}},
			Action: runReconnectDemo,
		},
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("nanoactor: startup error: %+v", err)
	}
}

func runServer(args *cli.Context) error {
	listen := args.String("listen")
	if listen == "" {
		return errors.Errorf("listen address cannot be empty")
	}

	addr, err := parseAddr(listen)
	if err != nil {
		return err
	}

	sys := nanoactor.NewSystem()
	home := sys.MakeLocalActor(nil, "Greeter", func(actorID id.ActorId) nanoactor.Actor {
		g := &greeter{id: actorID, name: "Server"}
		sys.ActorReady(g)
		return g
	})

	sm, err := sys.RunServer(addr)
	if err != nil {
		return errors.Trace(err)
	}
	log.Printf("nanoactor: server listening on %s, hosting actor %s", sm.Addr(), home.ActorID())
	sys.StartDiagnostics(30 * time.Second)

	waitForSignal()
	log.Print("nanoactor: shutting down")
	sys.ShutdownGracefully()
	return nil
}

func runClient(args *cli.Context) error {
	connect := args.String("connect")
	if connect == "" {
		return errors.Errorf("connect address cannot be empty")
	}
	name := args.String("name")

	addr, err := parseAddr(connect)
	if err != nil {
		return err
	}

	sys := nanoactor.NewSystem()
	defer sys.ShutdownGracefully()

	connected := make(chan struct{}, 1)
	sys.ConnectClient(addr, func(state cluster.State) {
		log.Printf("nanoactor: connection state -> %s", state)
		if state == cluster.Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		return errors.Errorf("timed out waiting to connect to %s", connect)
	}

	log.Printf("nanoactor: connected to %s; this demo client only observes the connection", connect)
	log.Print("nanoactor: addressing a remote actor requires its ActorId, typically learned out of band")
	waitForSignal()
	return nil
}

func runReconnectDemo(args *cli.Context) error {
	connect := args.String("connect")
	addr, err := parseAddr(connect)
	if err != nil {
		return err
	}

	sys := nanoactor.NewSystem()
	defer sys.ShutdownGracefully()

	sys.ConnectClient(addr, func(state cluster.State) {
		log.Printf("nanoactor: %s", state)
	})

	waitForSignal()
	return nil
}

func parseAddr(hostPort string) (cluster.ServerAddress, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return cluster.ServerAddress{}, errors.Trace(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cluster.ServerAddress{}, errors.Trace(err)
	}
	return cluster.ServerAddress{Scheme: cluster.Insecure, Host: host, Port: port}, nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
