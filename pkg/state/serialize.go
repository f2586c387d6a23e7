package state

import (
	"time"

	"github.com/go-faster/jx"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
)

const timeLayout = time.RFC3339Nano

// Marshal encodes a BrainState as JSON using a low-allocation jx.Encoder
// rather than encoding/json's reflection-based path, since a checkpoint is
// written at every stage boundary (P2, round-trip).
func Marshal(b BrainState) ([]byte, error) {
	e := jx.Encoder{}
	writeBrainState(&e, b)
	return e.Bytes(), nil
}

// Unmarshal decodes a BrainState previously produced by Marshal.
func Unmarshal(data []byte) (BrainState, error) {
	d := jx.DecodeBytes(data)
	var b BrainState
	if err := readBrainState(d, &b); err != nil {
		return BrainState{}, apperrors.Wrap(err, apperrors.ErrorTypeParse, "failed to decode brain state")
	}
	return b, nil
}

func writeBrainState(e *jx.Encoder, b BrainState) {
	e.ObjStart()
	e.FieldStart("session_id")
	e.Str(b.SessionID)

	e.FieldStart("hci")
	writeHCI(e, b.HCI)

	e.FieldStart("world")
	writeWorld(e, b.World)

	e.FieldStart("robot")
	writeRobot(e, b.Robot)

	e.FieldStart("tasks")
	writeTasks(e, b.Tasks)

	e.FieldStart("skills")
	writeSkills(e, b.Skills)

	e.FieldStart("react")
	writeReact(e, b.React)

	e.FieldStart("trace")
	writeTrace(e, b.Trace)

	e.FieldStart("messages")
	writeMessages(e, b.Messages)
	e.ObjEnd()
}

func readBrainState(d *jx.Decoder, b *BrainState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "session_id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			b.SessionID = v
		case "hci":
			return readHCI(d, &b.HCI)
		case "world":
			return readWorld(d, &b.World)
		case "robot":
			return readRobot(d, &b.Robot)
		case "tasks":
			return readTasks(d, &b.Tasks)
		case "skills":
			return readSkills(d, &b.Skills)
		case "react":
			return readReact(d, &b.React)
		case "trace":
			return readTrace(d, &b.Trace)
		case "messages":
			return readMessages(d, &b.Messages)
		default:
			return d.Skip()
		}
	})
}

func writeHCI(e *jx.Encoder, h HCIState) {
	e.ObjStart()
	e.FieldStart("utterance")
	e.Str(h.Utterance)
	e.FieldStart("interrupt_class")
	e.Str(string(h.InterruptClass))
	e.FieldStart("interrupt_payload")
	writeAnyMap(e, h.InterruptPayload)
	e.FieldStart("approval_response")
	if h.ApprovalResponse == nil {
		e.Null()
	} else {
		e.ObjStart()
		e.FieldStart("action")
		e.Str(string(h.ApprovalResponse.Action))
		e.FieldStart("edited_params")
		writeAnyMap(e, h.ApprovalResponse.EditedParams)
		e.ObjEnd()
	}
	e.ObjEnd()
}

func readHCI(d *jx.Decoder, h *HCIState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "utterance":
			v, err := d.Str()
			if err != nil {
				return err
			}
			h.Utterance = v
		case "interrupt_class":
			v, err := d.Str()
			if err != nil {
				return err
			}
			h.InterruptClass = InterruptClass(v)
		case "interrupt_payload":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			h.InterruptPayload = m
		case "approval_response":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var ar ApprovalResponse
			err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "action":
					v, err := d.Str()
					if err != nil {
						return err
					}
					ar.Action = ApprovalAction(v)
				case "edited_params":
					m, err := readAnyMap(d)
					if err != nil {
						return err
					}
					ar.EditedParams = m
				default:
					return d.Skip()
				}
				return nil
			})
			if err != nil {
				return err
			}
			h.ApprovalResponse = &ar
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeWorld(e *jx.Encoder, w WorldState) {
	e.ObjStart()
	e.FieldStart("summary")
	e.Str(w.Summary)
	e.FieldStart("zones")
	e.ArrStart()
	for _, z := range w.Zones {
		e.Str(z)
	}
	e.ArrEnd()
	e.FieldStart("obstacles")
	e.ArrStart()
	for _, o := range w.Obstacles {
		writeObstacle(e, o)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func writeObstacle(e *jx.Encoder, o Obstacle) {
	e.ObjStart()
	e.FieldStart("x")
	e.Float64(o.X)
	e.FieldStart("y")
	e.Float64(o.Y)
	e.FieldStart("w")
	e.Float64(o.W)
	e.FieldStart("h")
	e.Float64(o.H)
	e.FieldStart("collision_risk")
	e.Bool(o.CollisionRisk)
	e.ObjEnd()
}

func readWorld(d *jx.Decoder, w *WorldState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "summary":
			v, err := d.Str()
			if err != nil {
				return err
			}
			w.Summary = v
		case "zones":
			zones := []string{}
			err := d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				zones = append(zones, v)
				return nil
			})
			if err != nil {
				return err
			}
			w.Zones = zones
		case "obstacles":
			obstacles := []Obstacle{}
			err := d.Arr(func(d *jx.Decoder) error {
				var o Obstacle
				if err := readObstacle(d, &o); err != nil {
					return err
				}
				obstacles = append(obstacles, o)
				return nil
			})
			if err != nil {
				return err
			}
			w.Obstacles = obstacles
		default:
			return d.Skip()
		}
		return nil
	})
}

func readObstacle(d *jx.Decoder, o *Obstacle) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "x":
			o.X, err = d.Float64()
		case "y":
			o.Y, err = d.Float64()
		case "w":
			o.W, err = d.Float64()
		case "h":
			o.H, err = d.Float64()
		case "collision_risk":
			o.CollisionRisk, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func writePose(e *jx.Encoder, p Pose) {
	e.ObjStart()
	e.FieldStart("x")
	e.Float64(p.X)
	e.FieldStart("y")
	e.Float64(p.Y)
	e.FieldStart("z")
	e.Float64(p.Z)
	e.FieldStart("qx")
	e.Float64(p.QX)
	e.FieldStart("qy")
	e.Float64(p.QY)
	e.FieldStart("qz")
	e.Float64(p.QZ)
	e.FieldStart("qw")
	e.Float64(p.QW)
	e.ObjEnd()
}

func readPose(d *jx.Decoder, p *Pose) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "x":
			p.X, err = d.Float64()
		case "y":
			p.Y, err = d.Float64()
		case "z":
			p.Z, err = d.Float64()
		case "qx":
			p.QX, err = d.Float64()
		case "qy":
			p.QY, err = d.Float64()
		case "qz":
			p.QZ, err = d.Float64()
		case "qw":
			p.QW, err = d.Float64()
		default:
			err = d.Skip()
		}
		return err
	})
}

func writeTwist(e *jx.Encoder, t Twist) {
	e.ObjStart()
	e.FieldStart("linear_x")
	e.Float64(t.LinearX)
	e.FieldStart("linear_y")
	e.Float64(t.LinearY)
	e.FieldStart("linear_z")
	e.Float64(t.LinearZ)
	e.FieldStart("angular_x")
	e.Float64(t.AngularX)
	e.FieldStart("angular_y")
	e.Float64(t.AngularY)
	e.FieldStart("angular_z")
	e.Float64(t.AngularZ)
	e.ObjEnd()
}

func readTwist(d *jx.Decoder, t *Twist) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "linear_x":
			t.LinearX, err = d.Float64()
		case "linear_y":
			t.LinearY, err = d.Float64()
		case "linear_z":
			t.LinearZ, err = d.Float64()
		case "angular_x":
			t.AngularX, err = d.Float64()
		case "angular_y":
			t.AngularY, err = d.Float64()
		case "angular_z":
			t.AngularZ, err = d.Float64()
		default:
			err = d.Skip()
		}
		return err
	})
}

func writeRobot(e *jx.Encoder, r RobotState) {
	e.ObjStart()
	e.FieldStart("pose")
	writePose(e, r.Pose)
	e.FieldStart("home_pose")
	writePose(e, r.HomePose)
	e.FieldStart("twist")
	writeTwist(e, r.Twist)
	e.FieldStart("battery_pct")
	e.Float64(r.BatteryPct)
	e.FieldStart("battery_state")
	e.Str(string(r.BatteryState))
	e.FieldStart("resources")
	e.ObjStart()
	for k, v := range r.Resources {
		e.FieldStart(k)
		e.Bool(v)
	}
	e.ObjEnd()
	e.FieldStart("distance_to_target")
	e.Float64(r.DistanceToTarget)
	e.ObjEnd()
}

func readRobot(d *jx.Decoder, r *RobotState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "pose":
			return readPose(d, &r.Pose)
		case "home_pose":
			return readPose(d, &r.HomePose)
		case "twist":
			return readTwist(d, &r.Twist)
		case "battery_pct":
			v, err := d.Float64()
			if err != nil {
				return err
			}
			r.BatteryPct = v
		case "battery_state":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.BatteryState = BatteryState(v)
		case "resources":
			m := map[string]bool{}
			err := d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Bool()
				if err != nil {
					return err
				}
				m[key] = v
				return nil
			})
			if err != nil {
				return err
			}
			r.Resources = m
		case "distance_to_target":
			v, err := d.Float64()
			if err != nil {
				return err
			}
			r.DistanceToTarget = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeTasks(e *jx.Encoder, t TasksState) {
	e.ObjStart()
	e.FieldStart("inbox")
	e.ArrStart()
	for _, pf := range t.Inbox {
		writePlanFragment(e, pf)
	}
	e.ArrEnd()
	e.FieldStart("queue")
	e.ArrStart()
	for _, task := range t.Queue {
		writeTask(e, task)
	}
	e.ArrEnd()
	e.FieldStart("active_task_id")
	if t.ActiveTaskID == nil {
		e.Null()
	} else {
		e.Str(*t.ActiveTaskID)
	}
	e.FieldStart("mode")
	e.Str(string(t.Mode))
	e.FieldStart("preempt_flag")
	e.Bool(t.PreemptFlag)
	e.FieldStart("preempt_reason")
	e.Str(t.PreemptReason)
	e.ObjEnd()
}

func writePlanFragment(e *jx.Encoder, pf PlanFragment) {
	e.ObjStart()
	e.FieldStart("goal_string")
	e.Str(pf.GoalString)
	e.FieldStart("priority")
	e.Int(pf.Priority)
	e.FieldStart("required_resources")
	writeStrArr(e, pf.RequiredResources)
	e.FieldStart("metadata")
	writeAnyMap(e, pf.Metadata)
	e.ObjEnd()
}

func readPlanFragment(d *jx.Decoder, pf *PlanFragment) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "goal_string":
			v, err := d.Str()
			if err != nil {
				return err
			}
			pf.GoalString = v
		case "priority":
			v, err := d.Int()
			if err != nil {
				return err
			}
			pf.Priority = v
		case "required_resources":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			pf.RequiredResources = v
		case "metadata":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			pf.Metadata = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeTask(e *jx.Encoder, t Task) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(t.ID)
	e.FieldStart("goal_string")
	e.Str(t.GoalString)
	e.FieldStart("priority")
	e.Int(t.Priority)
	e.FieldStart("deadline")
	if t.Deadline == nil {
		e.Null()
	} else {
		e.Str(t.Deadline.Format(timeLayout))
	}
	e.FieldStart("required_resources")
	writeStrArr(e, t.RequiredResources)
	e.FieldStart("preemptible")
	e.Bool(t.Preemptible)
	e.FieldStart("status")
	e.Str(string(t.Status))
	e.FieldStart("created_at")
	e.Str(t.CreatedAt.Format(timeLayout))
	e.FieldStart("metadata")
	writeAnyMap(e, t.Metadata)
	e.ObjEnd()
}

func readTask(d *jx.Decoder, t *Task) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.ID = v
		case "goal_string":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.GoalString = v
		case "priority":
			v, err := d.Int()
			if err != nil {
				return err
			}
			t.Priority = v
		case "deadline":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			ts, err := time.Parse(timeLayout, v)
			if err != nil {
				return err
			}
			t.Deadline = &ts
		case "required_resources":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			t.RequiredResources = v
		case "preemptible":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			t.Preemptible = v
		case "status":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.Status = TaskStatus(v)
		case "created_at":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ts, err := time.Parse(timeLayout, v)
			if err != nil {
				return err
			}
			t.CreatedAt = ts
		case "metadata":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			t.Metadata = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func readTasks(d *jx.Decoder, t *TasksState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "inbox":
			var inbox []PlanFragment
			err := d.Arr(func(d *jx.Decoder) error {
				var pf PlanFragment
				if err := readPlanFragment(d, &pf); err != nil {
					return err
				}
				inbox = append(inbox, pf)
				return nil
			})
			if err != nil {
				return err
			}
			t.Inbox = inbox
		case "queue":
			queue := []Task{}
			err := d.Arr(func(d *jx.Decoder) error {
				var task Task
				if err := readTask(d, &task); err != nil {
					return err
				}
				queue = append(queue, task)
				return nil
			})
			if err != nil {
				return err
			}
			t.Queue = queue
		case "active_task_id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.ActiveTaskID = &v
		case "mode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.Mode = Mode(v)
		case "preempt_flag":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			t.PreemptFlag = v
		case "preempt_reason":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t.PreemptReason = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeSkills(e *jx.Encoder, s SkillsState) {
	e.ObjStart()
	e.FieldStart("registry")
	e.ObjStart()
	for name, def := range s.Registry {
		e.FieldStart(name)
		writeSkillDef(e, def)
	}
	e.ObjEnd()
	e.FieldStart("running")
	e.ArrStart()
	for _, rs := range s.Running {
		writeRunningSkill(e, rs)
	}
	e.ArrEnd()
	e.FieldStart("last_result")
	if s.LastResult == nil {
		e.Null()
	} else {
		writeSkillResult(e, *s.LastResult)
	}
	e.ObjEnd()
}

func writeSkillDef(e *jx.Encoder, s SkillDef) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("interface_kind")
	e.Str(string(s.InterfaceKind))
	e.FieldStart("args_schema")
	if len(s.ArgsSchemaJSON) == 0 {
		e.Null()
	} else {
		e.Raw(s.ArgsSchemaJSON)
	}
	e.FieldStart("required_resources")
	writeStrArr(e, s.RequiredResources)
	e.FieldStart("preemptible")
	e.Bool(s.Preemptible)
	e.FieldStart("cancel_supported")
	e.Bool(s.CancelSupported)
	e.FieldStart("timeout_seconds")
	e.Int(s.TimeoutSeconds)
	e.FieldStart("error_map")
	e.ObjStart()
	for k, v := range s.ErrorMap {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjEnd()
	e.FieldStart("description")
	e.Str(s.Description)
	e.ObjEnd()
}

func readSkillDef(d *jx.Decoder, s *SkillDef) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.Name = v
		case "interface_kind":
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.InterfaceKind = InterfaceKind(v)
		case "args_schema":
			if d.Next() == jx.Null {
				return d.Null()
			}
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			s.ArgsSchemaJSON = append([]byte{}, raw...)
		case "required_resources":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			s.RequiredResources = v
		case "preemptible":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			s.Preemptible = v
		case "cancel_supported":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			s.CancelSupported = v
		case "timeout_seconds":
			v, err := d.Int()
			if err != nil {
				return err
			}
			s.TimeoutSeconds = v
		case "error_map":
			m := map[string]string{}
			err := d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				m[key] = v
				return nil
			})
			if err != nil {
				return err
			}
			s.ErrorMap = m
		case "description":
			v, err := d.Str()
			if err != nil {
				return err
			}
			s.Description = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeRunningSkill(e *jx.Encoder, r RunningSkill) {
	e.ObjStart()
	e.FieldStart("goal_id")
	e.Str(r.GoalID)
	e.FieldStart("skill_name")
	e.Str(r.SkillName)
	e.FieldStart("start_time")
	e.Str(r.StartTime.Format(timeLayout))
	e.FieldStart("timeout_seconds")
	e.Int(r.TimeoutSeconds)
	e.FieldStart("resources_occupied")
	writeStrArr(e, r.ResourcesOccupied)
	e.FieldStart("params")
	writeAnyMap(e, r.Params)
	e.ObjEnd()
}

func readRunningSkill(d *jx.Decoder, r *RunningSkill) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "goal_id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.GoalID = v
		case "skill_name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.SkillName = v
		case "start_time":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ts, err := time.Parse(timeLayout, v)
			if err != nil {
				return err
			}
			r.StartTime = ts
		case "timeout_seconds":
			v, err := d.Int()
			if err != nil {
				return err
			}
			r.TimeoutSeconds = v
		case "resources_occupied":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			r.ResourcesOccupied = v
		case "params":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			r.Params = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeSkillResult(e *jx.Encoder, r SkillResult) {
	e.ObjStart()
	e.FieldStart("goal_id")
	e.Str(r.GoalID)
	e.FieldStart("skill_name")
	e.Str(r.SkillName)
	e.FieldStart("success")
	e.Bool(r.Success)
	e.FieldStart("code")
	e.Str(r.Code)
	e.FieldStart("data")
	writeAnyMap(e, r.Data)
	e.FieldStart("completed_at")
	e.Str(r.CompletedAt.Format(timeLayout))
	e.ObjEnd()
}

func readSkillResult(d *jx.Decoder, r *SkillResult) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "goal_id":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.GoalID = v
		case "skill_name":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.SkillName = v
		case "success":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			r.Success = v
		case "code":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.Code = v
		case "data":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			r.Data = m
		case "completed_at":
			v, err := d.Str()
			if err != nil {
				return err
			}
			ts, err := time.Parse(timeLayout, v)
			if err != nil {
				return err
			}
			r.CompletedAt = ts
		default:
			return d.Skip()
		}
		return nil
	})
}

func readSkills(d *jx.Decoder, s *SkillsState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "registry":
			reg := map[string]SkillDef{}
			err := d.Obj(func(d *jx.Decoder, key string) error {
				var def SkillDef
				if err := readSkillDef(d, &def); err != nil {
					return err
				}
				reg[key] = def
				return nil
			})
			if err != nil {
				return err
			}
			s.Registry = reg
		case "running":
			running := []RunningSkill{}
			err := d.Arr(func(d *jx.Decoder) error {
				var rs RunningSkill
				if err := readRunningSkill(d, &rs); err != nil {
					return err
				}
				running = append(running, rs)
				return nil
			})
			if err != nil {
				return err
			}
			s.Running = running
		case "last_result":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var res SkillResult
			if err := readSkillResult(d, &res); err != nil {
				return err
			}
			s.LastResult = &res
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeReact(e *jx.Encoder, r ReactState) {
	e.ObjStart()
	e.FieldStart("iter")
	e.Int(r.Iter)
	e.FieldStart("observation")
	writeAnyMap(e, r.Observation)
	e.FieldStart("decision")
	if r.Decision == nil {
		e.Null()
	} else {
		writeDecision(e, *r.Decision)
	}
	e.FieldStart("proposed_ops")
	if r.ProposedOps == nil {
		e.Null()
	} else {
		writeProposedOps(e, *r.ProposedOps)
	}
	e.FieldStart("stop_reason")
	e.Str(r.StopReason)
	e.ObjEnd()
}

func writeDecision(e *jx.Encoder, dec Decision) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(dec.Type))
	e.FieldStart("reason")
	e.Str(dec.Reason)
	e.FieldStart("plan_patch")
	writeAnyMap(e, dec.PlanPatch)
	e.FieldStart("ops")
	e.ArrStart()
	for _, op := range dec.Ops {
		writeOp(e, op)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func writeOp(e *jx.Encoder, op Op) {
	e.ObjStart()
	e.FieldStart("skill")
	e.Str(op.Skill)
	e.FieldStart("params")
	writeAnyMap(e, op.Params)
	e.ObjEnd()
}

func readOp(d *jx.Decoder, op *Op) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "skill":
			v, err := d.Str()
			if err != nil {
				return err
			}
			op.Skill = v
		case "params":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			op.Params = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func readDecision(d *jx.Decoder, dec *Decision) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			v, err := d.Str()
			if err != nil {
				return err
			}
			dec.Type = DecisionType(v)
		case "reason":
			v, err := d.Str()
			if err != nil {
				return err
			}
			dec.Reason = v
		case "plan_patch":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			dec.PlanPatch = m
		case "ops":
			var ops []Op
			err := d.Arr(func(d *jx.Decoder) error {
				var op Op
				if err := readOp(d, &op); err != nil {
					return err
				}
				ops = append(ops, op)
				return nil
			})
			if err != nil {
				return err
			}
			dec.Ops = ops
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeProposedOps(e *jx.Encoder, po ProposedOps) {
	e.ObjStart()
	e.FieldStart("to_cancel")
	writeStrArr(e, po.ToCancel)
	e.FieldStart("to_dispatch")
	e.ArrStart()
	for _, d := range po.ToDispatch {
		e.ObjStart()
		e.FieldStart("skill")
		e.Str(d.Skill)
		e.FieldStart("params")
		writeAnyMap(e, d.Params)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("to_speak")
	writeStrArr(e, po.ToSpeak)
	e.FieldStart("need_approval")
	e.Bool(po.NeedApproval)
	e.FieldStart("approval_payload")
	writeAnyMap(e, po.ApprovalPayload)
	e.ObjEnd()
}

func readProposedOps(d *jx.Decoder, po *ProposedOps) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "to_cancel":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			po.ToCancel = v
		case "to_dispatch":
			var dispatch []DispatchOp
			err := d.Arr(func(d *jx.Decoder) error {
				var op DispatchOp
				err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "skill":
						v, err := d.Str()
						if err != nil {
							return err
						}
						op.Skill = v
					case "params":
						m, err := readAnyMap(d)
						if err != nil {
							return err
						}
						op.Params = m
					default:
						return d.Skip()
					}
					return nil
				})
				if err != nil {
					return err
				}
				dispatch = append(dispatch, op)
				return nil
			})
			if err != nil {
				return err
			}
			po.ToDispatch = dispatch
		case "to_speak":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			po.ToSpeak = v
		case "need_approval":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			po.NeedApproval = v
		case "approval_payload":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			po.ApprovalPayload = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func readReact(d *jx.Decoder, r *ReactState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "iter":
			v, err := d.Int()
			if err != nil {
				return err
			}
			r.Iter = v
		case "observation":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			r.Observation = m
		case "decision":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var dec Decision
			if err := readDecision(d, &dec); err != nil {
				return err
			}
			r.Decision = &dec
		case "proposed_ops":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var po ProposedOps
			if err := readProposedOps(d, &po); err != nil {
				return err
			}
			r.ProposedOps = &po
		case "stop_reason":
			v, err := d.Str()
			if err != nil {
				return err
			}
			r.StopReason = v
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeTrace(e *jx.Encoder, t TraceState) {
	e.ObjStart()
	e.FieldStart("lines")
	writeStrArr(e, t.Lines)
	e.FieldStart("metrics")
	writeAnyMap(e, t.Metrics)
	e.ObjEnd()
}

func readTrace(d *jx.Decoder, t *TraceState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "lines":
			v, err := readStrArr(d)
			if err != nil {
				return err
			}
			if v == nil {
				v = []string{}
			}
			t.Lines = v
		case "metrics":
			m, err := readAnyMap(d)
			if err != nil {
				return err
			}
			t.Metrics = m
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeMessages(e *jx.Encoder, m MessagesState) {
	e.ObjStart()
	e.FieldStart("messages")
	e.ArrStart()
	for _, msg := range m.Messages {
		e.ObjStart()
		e.FieldStart("role")
		e.Str(msg.Role)
		e.FieldStart("content")
		e.Str(msg.Content)
		e.FieldStart("type")
		e.Str(msg.Type)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func readMessages(d *jx.Decoder, m *MessagesState) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "messages":
			msgs := []Message{}
			err := d.Arr(func(d *jx.Decoder) error {
				var msg Message
				err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "role":
						v, err := d.Str()
						if err != nil {
							return err
						}
						msg.Role = v
					case "content":
						v, err := d.Str()
						if err != nil {
							return err
						}
						msg.Content = v
					case "type":
						v, err := d.Str()
						if err != nil {
							return err
						}
						msg.Type = v
					default:
						return d.Skip()
					}
					return nil
				})
				if err != nil {
					return err
				}
				msgs = append(msgs, msg)
				return nil
			})
			if err != nil {
				return err
			}
			m.Messages = msgs
		default:
			return d.Skip()
		}
		return nil
	})
}

func writeStrArr(e *jx.Encoder, arr []string) {
	e.ArrStart()
	for _, s := range arr {
		e.Str(s)
	}
	e.ArrEnd()
}

func readStrArr(d *jx.Decoder) ([]string, error) {
	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// writeAnyMap encodes a loosely-typed map (observation payloads, params,
// metadata) by round-tripping each value through its natural JSON shape.
func writeAnyMap(e *jx.Encoder, m map[string]interface{}) {
	if m == nil {
		e.Null()
		return
	}
	e.ObjStart()
	for k, v := range m {
		e.FieldStart(k)
		writeAny(e, v)
	}
	e.ObjEnd()
}

func writeAny(e *jx.Encoder, v interface{}) {
	switch val := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(val)
	case bool:
		e.Bool(val)
	case int:
		e.Int(val)
	case int64:
		e.Int64(val)
	case float64:
		e.Float64(val)
	case []interface{}:
		e.ArrStart()
		for _, item := range val {
			writeAny(e, item)
		}
		e.ArrEnd()
	case map[string]interface{}:
		writeAnyMap(e, val)
	default:
		e.Str("")
	}
}

func readAnyMap(d *jx.Decoder) (map[string]interface{}, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	m := map[string]interface{}{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := readAny(d)
		if err != nil {
			return err
		}
		m[key] = v
		return nil
	})
	return m, err
}

func readAny(d *jx.Decoder) (interface{}, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.String:
		return d.Str()
	case jx.Number:
		return d.Float64()
	case jx.Bool:
		return d.Bool()
	case jx.Array:
		var arr []interface{}
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := readAny(d)
			if err != nil {
				return err
			}
			arr = append(arr, v)
			return nil
		})
		return arr, err
	case jx.Object:
		return readAnyMap(d)
	default:
		return nil, d.Skip()
	}
}
