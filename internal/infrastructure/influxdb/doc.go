// Package influxdb records wakelight telemetry in InfluxDB v2.
//
// Two measurements are written, both tagged with the device name:
//
//	light_state  on=<bool>,value=<0|1>   every time the strip turns on or off
//	ws_session   duration_s=<float>      when a control server session ends
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Device.Name)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteLightState(true, time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Failures are delivered to the SetOnError callback.
package influxdb
