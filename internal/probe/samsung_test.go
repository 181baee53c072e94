package probe

import (
	"context"
	"net"
	"net/http"
	"testing"
)

func TestSamsungInfo(t *testing.T) {
	host, port := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "uuid:0d1cef70-00dc-1000-9c80-4844f7b172de",
			"device": {
				"name": "[TV] Samsung Q80 Series",
				"modelName": "QE55Q80",
				"type": "Samsung SmartTV",
				"networkType": "wireless"
			}
		}`))
	}))

	dev, err := samsungInfoAt(context.Background(), host, port)
	if err != nil {
		t.Fatalf("samsungInfoAt() error = %v", err)
	}

	if dev.Name != "[TV] Samsung Q80 Series" {
		t.Errorf("Name = %q", dev.Name)
	}
	if dev.Manufacturer != "Samsung" {
		t.Errorf("Manufacturer = %q", dev.Manufacturer)
	}
	if dev.Model != "QE55Q80" {
		t.Errorf("Model = %q", dev.Model)
	}
	if dev.ServiceType != "samsung smarttv" {
		t.Errorf("ServiceType = %q", dev.ServiceType)
	}
}

func TestSamsungInfo_NamelessPayload(t *testing.T) {
	host, port := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"device":{}}`))
	}))

	if _, err := samsungInfoAt(context.Background(), host, port); err == nil {
		t.Fatal("samsungInfoAt() error = nil, want error for nameless payload")
	}
}

// A port outside the known families still identifies when it serves a
// UPnP description at the generic path.
func TestResolve_GenericDescriptionPort(t *testing.T) {
	host, port := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/description.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(samsungDescription))
	}))

	dev, err := Resolve(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if dev.Name != "[TV] Samsung 7 Series (55)" {
		t.Errorf("Name = %q", dev.Name)
	}
	if dev.Manufacturer != "Samsung Electronics" {
		t.Errorf("Manufacturer = %q", dev.Manufacturer)
	}
	if dev.Port != port {
		t.Errorf("Port = %d, want %d", dev.Port, port)
	}
}

func TestResolve_GenericPortWithoutDescription(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	if _, err := Resolve(context.Background(), "127.0.0.1", port); err == nil {
		t.Fatal("Resolve() error = nil, want error for a port serving nothing")
	}
}
